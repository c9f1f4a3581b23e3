package efibootmgr

import (
	"errors"
	"fmt"
)

// OpError is the single recognized failure kind for boot-order operations:
// an unreachable or failing efibootmgr binary, unparseable output, unknown
// entry ids, ambiguous target selection, or a backup read/write failure.
// Callers map it to exit code 1; anything else is unanticipated.
type OpError struct {
	Msg string
	Err error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *OpError) Unwrap() error { return e.Err }

// Errorf builds a new OpError from a format string.
func Errorf(format string, args ...any) *OpError {
	return &OpError{Msg: fmt.Sprintf(format, args...)}
}

// Wrapf annotates err as an operational failure.
func Wrapf(err error, format string, args ...any) *OpError {
	return &OpError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsOp reports whether err is (or wraps) an OpError.
func IsOp(err error) bool {
	var oe *OpError
	return errors.As(err, &oe)
}
