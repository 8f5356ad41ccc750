package types

import (
	"fmt"
)

// Try runs fn and never lets a panic escape. A panic becomes an
// Internal error tagged with op; a plain error returned by fn is wrapped
// with kind unless it is already an *Error.
func Try[T any](op string, kind Kind, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = NewInternalError(op, "unexpected failure", fmt.Errorf("panic: %v", r))
		}
	}()

	result, err = fn()
	if err != nil {
		var zero T
		return zero, Wrap(kind, op, err)
	}
	return result, nil
}

// TryExec is Try for operations without a value.
func TryExec(op string, kind Kind, fn func() error) error {
	_, err := Try(op, kind, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
