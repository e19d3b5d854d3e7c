package core

import (
	"strings"

	"github.com/google/uuid"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// IsUUID reports whether s is a well-formed identifier.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NewID returns a new random identifier.
func NewID() string {
	return uuid.New().String()
}
