// Package errors defines the error taxonomy shared by the company service,
// its repository, its blob store and the transport handlers.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrConflict     = fmt.Errorf("conflicts with an existing record")
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// ValidationError collects every rule violated by a request, keyed by field.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields map[string][]string
	order  []string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records message against field.
func (v *ValidationError) Add(field, message string) {
	if _, ok := v.Fields[field]; !ok {
		v.order = append(v.order, field)
	}
	v.Fields[field] = append(v.Fields[field], message)
}

// Empty reports whether no violation has been recorded.
func (v *ValidationError) Empty() bool {
	return len(v.Fields) == 0
}

// ErrorOrNil returns v as an error, or nil when it holds no violations.
func (v *ValidationError) ErrorOrNil() error {
	if v == nil || v.Empty() {
		return nil
	}
	return v
}

// Error returns the first message followed by a count of the remaining ones.
func (v *ValidationError) Error() string {
	var msgs []string
	for _, field := range v.order {
		msgs = append(msgs, v.Fields[field]...)
	}
	switch len(msgs) {
	case 0:
		return "the given data was invalid"
	case 1:
		return msgs[0]
	case 2:
		return fmt.Sprintf("%s (and 1 more error)", msgs[0])
	default:
		return fmt.Sprintf("%s (and %d more errors)", msgs[0], len(msgs)-1)
	}
}

// Is makes every ValidationError match ErrInvalidInput.
func (v *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// StatusError is raised by collaborators that already know which HTTP status
// a failure deserves. Handlers surface Status and Message unchanged.
type StatusError struct {
	Status  int
	Message string
}

func (s *StatusError) Error() string {
	return s.Message
}

// StatusCode returns the declared HTTP status.
func (s *StatusError) StatusCode() int {
	return s.Status
}

// BlobError reports a failed blob store operation on a named file.
type BlobError struct {
	Op   string
	Name string
	Err  error
}

func (b *BlobError) Error() string {
	return fmt.Sprintf("blob %s %q: %v", b.Op, b.Name, b.Err)
}

func (b *BlobError) Unwrap() error {
	return b.Err
}

// StatusOf extracts a collaborator-declared status from anywhere in err's
// chain.
func StatusOf(err error) (int, string, bool) {
	var coder interface {
		error
		StatusCode() int
	}
	if errors.As(err, &coder) {
		return coder.StatusCode(), coder.Error(), true
	}
	return 0, "", false
}
