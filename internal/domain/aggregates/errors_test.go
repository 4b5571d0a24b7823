package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeNotFound, "section.get", "section not found", nil)
	if got := err.Error(); got != "section.get: section not found (not_found)" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation("section.create", map[string]string{"name": "Section name is required"})
	wrapped := fmt.Errorf("outer: %w", err)
	if !IsCode(wrapped, CodeValidation) {
		t.Fatalf("expected validation code, got %q", CodeOf(wrapped))
	}
	if FieldsOf(wrapped)["name"] != "Section name is required" {
		t.Fatalf("fields lost through wrapping: %v", FieldsOf(wrapped))
	}
	if got := err.Error(); got != "section.create: name: Section name is required (validation)" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if CodeOf(errors.New("boom")) != "" {
		t.Fatalf("plain errors carry no code")
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
}
