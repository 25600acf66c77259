package prepare

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnresolvedColumns = errors.New("unresolved columns")
	ErrAmbiguousColumns  = errors.New("ambiguous columns")
)

// SchemaError reports which semantic columns could not be resolved and the
// headers that were available, so a caller can offer manual mapping.
type SchemaError struct {
	Missing   []string // semantic roles without a column
	Ambiguous []string // headers claimed by more than one role
	Found     []string // headers present in the table
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "missing columns %s", strings.Join(e.Missing, ", "))
	}
	if len(e.Ambiguous) > 0 {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "ambiguous columns %s", strings.Join(e.Ambiguous, ", "))
	}
	fmt.Fprintf(&b, " (found: %s)", strings.Join(e.Found, ", "))
	return b.String()
}

// Unwrap exposes the sentinel kind.
func (e *SchemaError) Unwrap() error {
	if len(e.Missing) > 0 {
		return ErrUnresolvedColumns
	}
	return ErrAmbiguousColumns
}
