package errors

import "fmt"

type ErrorCode int

const (
	InternalError ErrorCode = iota
	InvalidConfiguration
	PreconditionViolation
	StoreClosed
)

// SkiffError is an error with a code that callers can dispatch on. Precondition
// violations are programming-contract errors (the API was used wrongly) and are
// deliberately distinguishable from I/O failures bubbling up from the KV layer.
type SkiffError struct {
	Code ErrorCode
	Msg  string
}

func (e SkiffError) Error() string {
	return e.Msg
}

func NewSkiffErrorf(errorCode ErrorCode, msgFormat string, args ...interface{}) SkiffError {
	msg := fmt.Sprintf(fmt.Sprintf("SKF%04d - %s", errorCode, msgFormat), args...)
	return SkiffError{Code: errorCode, Msg: msg}
}

func NewInternalError(msgFormat string, args ...interface{}) SkiffError {
	return NewSkiffErrorf(InternalError, msgFormat, args...)
}

func NewInvalidConfigurationError(msg string) SkiffError {
	return NewSkiffErrorf(InvalidConfiguration, "Invalid configuration: %s", msg)
}

func NewPreconditionViolationError(msg string) SkiffError {
	return NewSkiffErrorf(PreconditionViolation, "Precondition violation: %s", msg)
}

func NewStoreClosedError() SkiffError {
	return NewSkiffErrorf(StoreClosed, "Store has been closed")
}

// Code extracts the ErrorCode from err or any error it wraps. The second return
// is false if there is no SkiffError in the chain.
func Code(err error) (ErrorCode, bool) {
	var se SkiffError
	if As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
