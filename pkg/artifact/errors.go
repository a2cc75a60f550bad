package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing required artifact or directory.
	ErrNotFound = errors.New("not found")
	// ErrMalformedData marks an artifact that does not parse as the expected JSON.
	ErrMalformedData = errors.New("malformed data")
	// ErrIO marks a filesystem failure while reading or writing artifacts.
	ErrIO = errors.New("i/o failure")
)

// Error is a failure scoped to a single unit of work. It matches its Kind
// and its underlying cause with errors.Is.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func notFound(path string, err error) error {
	return &Error{Kind: ErrNotFound, Path: path, Err: err}
}

func malformed(path string, err error) error {
	return &Error{Kind: ErrMalformedData, Path: path, Err: err}
}

func ioFailure(path string, err error) error {
	return &Error{Kind: ErrIO, Path: path, Err: err}
}

// IsNotFound reports whether err is an ErrNotFound failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsMalformed reports whether err is an ErrMalformedData failure.
func IsMalformed(err error) bool { return errors.Is(err, ErrMalformedData) }

// IsIO reports whether err is an ErrIO failure.
func IsIO(err error) bool { return errors.Is(err, ErrIO) }
