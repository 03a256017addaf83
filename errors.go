package storefx

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// UnknownErrorText is the error-phase payload used when a failure carries
// no usable text.
const UnknownErrorText = "Unknown error"

// ErrUnknown replaces a nil rejection reason so that a rejected promise
// always carries an error.
var ErrUnknown = errors.New(UnknownErrorText)

// PanicError wraps a value recovered from a panic together with the stack
// at the point of recovery.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(r any) *PanicError {
	return &PanicError{Value: r, Stack: string(debug.Stack())}
}

// ErrorText converts a failure into the text carried by an error-phase
// message. Error messages are used when non-empty; an error with an empty
// message yields "Error"; a recovered panic yields the text of its value;
// anything else yields UnknownErrorText.
func ErrorText(err error) string {
	if err == nil {
		return UnknownErrorText
	}

	if pe, ok := err.(*PanicError); ok {
		switch v := pe.Value.(type) {
		case error:
			return ErrorText(v)
		case string:
			if v != "" {
				return v
			}
		case fmt.Stringer:
			if s := v.String(); s != "" {
				return s
			}
		}
		return UnknownErrorText
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Error"
}
