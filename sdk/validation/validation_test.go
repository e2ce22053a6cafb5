package validation_test

import (
	"testing"
	"time"

	"github.com/jrazmi/growlog/sdk/validation"
)

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"providerAccountId": "provider_account_id",
		"imageUrl":          "image_url",
		"ph":                "ph",
		"refresh_token":     "refresh_token",
		"createdAt":         "created_at",
	}
	for in, want := range tests {
		if got := validation.ToSnakeCase(in); got != want {
			t.Errorf("ToSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseFlexibleDate(t *testing.T) {
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-05", "03/05/2024", "2024/03/05"} {
		got, err := validation.ParseFlexibleDate(in)
		if err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("%s = %v, want %v", in, got, want)
		}
	}
	if _, err := validation.ParseFlexibleDate("next tuesday"); err == nil {
		t.Error("expected an error")
	}
}
