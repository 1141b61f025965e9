package odm

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidPath is returned for malformed field and document paths.
var ErrInvalidPath = errors.New("odm: invalid path")

// ErrIteratorStopped is returned by Next after Stop has been called.
var ErrIteratorStopped = errors.New("odm: iterator stopped")

// NotFoundError is returned when a document that must exist does not.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %q not found", e.Path)
}

// TypeMismatchError is returned for values that cannot be classified or
// that do not have the shape an operation requires.
type TypeMismatchError struct {
	Path  string
	Value interface{}
}

func (e *TypeMismatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unsupported value of type %T", e.Value)
	}
	return fmt.Sprintf("%s: unsupported value of type %T", e.Path, e.Value)
}

// TransportError wraps a failure reported by a store client.
type TransportError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Cause() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
