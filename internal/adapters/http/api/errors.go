package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrTooLarge    = errors.New("upload too large")
	ErrInvalidData = errors.New("unprocessable input")
	ErrInternal    = errors.New("internal error")
)

// KindError ties a failure to the handler operation and one of the
// sentinel kinds above. errors.Is matches both the kind and the cause.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind classifies err as kind. A nil err yields NewKind.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

// message is the client-facing text of err: the cause of a KindError
// without the operation prefix.
func message(err error) string {
	var ke *KindError
	if errors.As(err, &ke) {
		if ke.Err != nil {
			return ke.Err.Error()
		}
		return ke.Kind.Error()
	}
	return err.Error()
}
