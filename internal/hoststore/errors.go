package hoststore

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyName is returned when a record has a blank name.
	ErrEmptyName = errors.New("name cannot be empty")
	// ErrInvalidRecord marks a record that cannot be written to the hosts file.
	ErrInvalidRecord = errors.New("invalid host record")
)

// DuplicateNameError is returned by Add when the name is already taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("host already exists: %s", e.Name)
}

// NotFoundError reports a lookup by a name with no matching record.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("host not found: %s", e.Name)
}

// ParseError describes a malformed line in the hosts file or in an imported
// ssh config. Line is 1-based.
type ParseError struct {
	Path  string
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	msg := fmt.Sprintf("%s: invalid %s", loc, e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
