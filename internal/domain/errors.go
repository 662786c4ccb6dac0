package domain

import "fmt"

// ValidationError marks caller input that is missing, malformed or out
// of range. The request boundary maps it to a 400 response.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// DependencyError marks a failure of the object store or the record
// store. The request boundary maps it to a 500 response.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Dependency wraps err as a DependencyError attributed to op.
func Dependency(op string, err error) error {
	return &DependencyError{Op: op, Err: err}
}
