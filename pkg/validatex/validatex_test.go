package validatex_test

import (
	"testing"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/validatex"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Purpose  string `json:"purpose" validate:"omitempty,oneof=2fa reset"`
}

func TestStructValid(t *testing.T) {
	if err := validatex.Struct(loginRequest{Email: "a@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := validatex.Struct(loginRequest{Email: "nope", Password: "123", Purpose: "other"})
	if !errx.HasCode(err, validatex.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errx.IsType(err, errx.TypeValidation) {
		t.Fatal("expected validation type")
	}

	fields := validatex.Fields(err)
	if len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %+v", fields)
	}
	want := map[string]string{"email": "email", "password": "min", "purpose": "oneof"}
	for _, f := range fields {
		if want[f.Field] != f.Rule {
			t.Errorf("unexpected field error %+v", f)
		}
	}
}

func TestSingleFailureBecomesMessage(t *testing.T) {
	err := validatex.Struct(loginRequest{Email: "a@example.com", Password: "123"})
	e := errx.From(err)
	if e.Message != "password must be at least 6 characters" {
		t.Fatalf("message = %q", e.Message)
	}
}
