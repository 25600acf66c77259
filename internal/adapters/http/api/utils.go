package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errNotNumber = errors.New("must be a number")

// formValues reads typed fields out of a multipart value map. The first
// parse failure is kept and later reads become no-ops.
type formValues struct {
	values map[string][]string
	err    error
}

func (f *formValues) text(key string) string {
	if v := f.values[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (f *formValues) float(key string) *float64 {
	s := f.text(key)
	if s == "" || f.err != nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		f.err = fmt.Errorf("%s %w, got %q", key, errNotNumber, s)
		return nil
	}
	return &v
}

func (f *formValues) int(key string) *int {
	s := f.text(key)
	if s == "" || f.err != nil {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f.err = fmt.Errorf("%s must be an integer, got %q", key, s)
		return nil
	}
	return &v
}

func (f *formValues) bool(key string) bool {
	s := f.text(key)
	if s == "" || f.err != nil {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		f.err = fmt.Errorf("%s must be a boolean, got %q", key, s)
		return false
	}
	return v
}
