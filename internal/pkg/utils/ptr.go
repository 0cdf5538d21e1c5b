// Package utils holds small generic helpers shared across packages.
package utils

import "strings"

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// NilIfBlank returns nil when s is nil or only whitespace, and a pointer to
// the trimmed value otherwise.
func NilIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
