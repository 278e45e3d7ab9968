package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type stubTransitionErr struct{}

func (stubTransitionErr) Error() string { return "invalid status transition from processing to delivered" }

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"domain passthrough", NewForbidden("nope"), http.StatusForbidden, "nope"},
		{"wrapped domain", fmt.Errorf("ctx: %w", NewNotFound("Delivery")), http.StatusNotFound, "Delivery not found"},
		{"fiber error", fiber.NewError(http.StatusMethodNotAllowed, "Method Not Allowed"), http.StatusMethodNotAllowed, "Method Not Allowed"},
		{"no rows", pgx.ErrNoRows, http.StatusNotFound, "resource not found"},
		{"deadline", fmt.Errorf("list deliveries: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "Request timed out."},
		{"unknown", errors.New("connection reset by peer"), http.StatusInternalServerError, "Internal server error."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			if de.HTTPStatus != tc.status {
				t.Fatalf("status = %d, want %d", de.HTTPStatus, tc.status)
			}
			if de.Message != tc.msg {
				t.Fatalf("message = %q, want %q", de.Message, tc.msg)
			}
		})
	}
}

func TestInternalErrorDoesNotLeakCause(t *testing.T) {
	de := ToDomainError(errors.New("pq: password authentication failed for user admin"))
	if de.Message != "Internal server error." {
		t.Fatalf("unexpected message %q", de.Message)
	}
	if de.Err == nil {
		t.Fatal("cause should be kept for logging")
	}
}

func TestInvalidTransitionKeepsCause(t *testing.T) {
	err := NewInvalidTransition(stubTransitionErr{})
	var cause stubTransitionErr
	if !errors.As(err, &cause) {
		t.Fatal("expected cause to be reachable")
	}
	if ToDomainError(err).HTTPStatus != http.StatusBadRequest {
		t.Fatal("invalid transition must map to 400")
	}
}

func TestUnauthorizedKeepsCauseForLogs(t *testing.T) {
	sentinel := errors.New("token expired")
	err := NewUnauthorized("Unauthorized.", sentinel)
	if !errors.Is(err, sentinel) {
		t.Fatal("expected cause to be reachable with errors.Is")
	}
	if ToDomainError(err).Message != "Unauthorized." {
		t.Fatal("message must not include the cause")
	}
}
