package value

import (
	"errors"
	"fmt"
)

// MalformedError reports stored or supplied data that cannot be read as the
// requested kind.
type MalformedError struct {
	Kind Kind
	Raw  any
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s value %q: %v", e.Kind, fmt.Sprint(e.Raw), e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// IsMalformed returns true if err is or wraps a *MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

func malformed(kind Kind, raw any, err error) *MalformedError {
	return &MalformedError{Kind: kind, Raw: raw, Err: err}
}
