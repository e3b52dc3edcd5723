package query

import (
	"errors"
	"fmt"
	"strings"
)

// MaxLength is checked against the raw input before trimming.
const MaxLength = 300

var (
	// ErrEmpty means the query is empty after trimming whitespace.
	ErrEmpty = errors.New("query cannot be empty")
	// ErrTooLong means the raw query exceeds MaxLength characters.
	ErrTooLong = errors.New("query too long")
)

// Validate checks a raw query string and returns the trimmed form.
// No external call should ever be made for input that fails here.
func Validate(raw string) (string, error) {
	if len(raw) > MaxLength {
		return "", fmt.Errorf("%w (max %d chars)", ErrTooLong, MaxLength)
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmpty
	}
	return trimmed, nil
}
