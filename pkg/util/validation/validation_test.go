package validation

import (
	"errors"
	"testing"

	"github.com/joaomjbraga/shipment-management/pkg/util/errorutil"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
	Status   string `json:"status" validate:"required,status"`
}

func fieldMessages(t *testing.T, err error) map[string]string {
	t.Helper()
	var de *errorutil.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	out := make(map[string]string, len(de.Errors))
	for _, fe := range de.Errors {
		out[fe.Field] = fe.Message
	}
	return out
}

func TestStructUsesJSONNames(t *testing.T) {
	v := New()
	err := v.Struct(sample{Email: "nope", Password: "123", Status: "lost"})
	got := fieldMessages(t, err)

	want := map[string]string{
		"email":    "must be a valid email",
		"password": "must be between 6 and 72 characters long",
		"status":   "must be one of: processing, shipped, delivered",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Fatalf("field %s: got %q want %q", field, got[field], msg)
		}
	}
}

func TestStructValid(t *testing.T) {
	v := New()
	if err := v.Struct(sample{Email: "a@b.com", Password: "secret1", Status: "shipped"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVarNamesField(t *testing.T) {
	v := New()
	got := fieldMessages(t, v.Var("id", "not-a-uuid", "uuid"))
	if got["id"] != "must be a valid UUID" {
		t.Fatalf("unexpected details %v", got)
	}
}
