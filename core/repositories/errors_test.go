package repositories_test

import (
	"errors"
	"testing"

	"github.com/jrazmi/growlog/core/repositories"
)

func TestForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		message string
		meta    bool
	}{
		{"named field", "userId", "P2003: foreign key constraint failed on Plant.userId", true},
		{"unknown field", "", "P2003: foreign key constraint failed on Plant", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repositories.ForeignKeyViolation("Plant", tt.field)
			if err.Error() != tt.message {
				t.Errorf("message = %q, want %q", err.Error(), tt.message)
			}
			if !errors.Is(err, repositories.ErrForeignKeyViolation) {
				t.Errorf("errors.Is(ErrForeignKeyViolation) = false")
			}
			var known *repositories.KnownRequestError
			if !errors.As(err, &known) {
				t.Fatalf("got %T, want *KnownRequestError", err)
			}
			if _, ok := known.Meta["field_name"]; ok != tt.meta {
				t.Errorf("meta = %v", known.Meta)
			}
		})
	}
}
