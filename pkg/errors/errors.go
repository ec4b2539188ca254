package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of a failure inside a collection run
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeEffect     ErrorType = "effect"
	ErrorTypeLoop       ErrorType = "loop"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error carries a type, the operation that failed and an optional cause
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a cause
func New(t ErrorType, op, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Wrap attaches a type and operation to an existing error
func Wrap(t ErrorType, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: t, Op: op, Err: err}
}

// TypeOf returns the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}
