package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"bad request", E("op", ErrBadRequest, "x"), ErrBadRequest},
		{"locked", E("op", ErrLocked, "x"), ErrLocked},
		{"wrapped", fmt.Errorf("outer: %w", E("op", ErrConflict, "x")), ErrConflict},
		{"not active", E("op", ErrNotActive, ""), ErrUnauthorized},
		{"internal with conflict cause", Internal("op", E("inner", ErrConflict, "x")), ErrInternal},
		{"raw", errors.New("boom"), ErrInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("%s: KindOf=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestOpError_UnwrapsKindAndCause(t *testing.T) {
	err := Internal("identity.FindAccountByID", context.DeadlineExceeded)

	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cause to be reachable")
	}
	if MessageOf(err) != "" {
		t.Fatalf("internal errors must not carry a caller message")
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(E("op", ErrUnauthorized, "Invalid credentials.")); got != "Invalid credentials." {
		t.Fatalf("MessageOf=%q", got)
	}
	if got := MessageOf(errors.New("raw")); got != "" {
		t.Fatalf("MessageOf(raw)=%q", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM \n"); got != "alice@example.com" {
		t.Fatalf("NormalizeEmail=%q", got)
	}
}
