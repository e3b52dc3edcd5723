package query

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTrims(t *testing.T) {
	got, err := Validate("  what is Go?  ")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got != "what is Go?" {
		t.Fatalf("expected trimmed query, got %q", got)
	}
}

func TestValidateEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t "} {
		if _, err := Validate(raw); !errors.Is(err, ErrEmpty) {
			t.Fatalf("Validate(%q): expected ErrEmpty, got %v", raw, err)
		}
	}
}

func TestValidateTooLong(t *testing.T) {
	raw := strings.Repeat("a", MaxLength+1)
	if _, err := Validate(raw); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	// The limit applies to the raw length, padding included.
	padded := strings.Repeat(" ", MaxLength) + "hi"
	if _, err := Validate(padded); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong for padded input, got %v", err)
	}
}

func TestValidateBoundary(t *testing.T) {
	raw := strings.Repeat("a", MaxLength)
	if _, err := Validate(raw); err != nil {
		t.Fatalf("exactly %d chars should pass: %v", MaxLength, err)
	}
}
