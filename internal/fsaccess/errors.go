package fsaccess

import "errors"

var (
	ErrPathNotFound  = errors.New("path not found")
	ErrNotADirectory = errors.New("not a directory")
	ErrIO            = errors.New("i/o failure")
	ErrNotText       = errors.New("not valid utf-8 text")
)

// opError keeps the human-readable message while letting callers match the
// failure category with errors.Is.
type opError struct {
	kind    error
	message string
	cause   error
}

func (e *opError) Error() string {
	return e.message
}

func (e *opError) Is(target error) bool {
	return target == e.kind
}

func (e *opError) Unwrap() error {
	return e.cause
}

func newError(kind error, message string, cause error) error {
	return &opError{kind: kind, message: message, cause: cause}
}
