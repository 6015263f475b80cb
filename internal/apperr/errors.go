// Package apperr defines the error taxonomy shared by the store, the
// deduplicator and the outer surfaces.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrIO marks a path that is missing, unreadable or unwritable.
	ErrIO = errors.New("io error")
	// ErrParse marks malformed JSON or XML input.
	ErrParse = errors.New("parse error")
	// ErrValidation marks a field coercion failure. It is recovered locally
	// by substituting the field default and is never returned as a hard
	// failure from load or save.
	ErrValidation = errors.New("validation error")
)

// PathError ties a taxonomy sentinel to the file it happened on.
type PathError struct {
	Kind error
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

// Is reports whether target is the taxonomy sentinel of e.
func (e *PathError) Is(target error) bool { return target == e.Kind }

func (e *PathError) Unwrap() error { return e.Err }

// IO wraps err as an ErrIO for path.
func IO(path string, err error) error {
	return &PathError{Kind: ErrIO, Path: path, Err: err}
}

// Parse wraps err as an ErrParse for path.
func Parse(path string, err error) error {
	return &PathError{Kind: ErrParse, Path: path, Err: err}
}

// FieldError describes a coercion failure on a single form field.
type FieldError struct {
	Field string
	Input string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %s: cannot use %q: %v", ErrValidation, e.Field, e.Input, e.Err)
}

func (e *FieldError) Is(target error) bool { return target == ErrValidation }

func (e *FieldError) Unwrap() error { return e.Err }
