package token

import (
	"encoding/base64"
	"testing"
)

func TestNewOpaque_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		tok, err := NewOpaque(0)
		if err != nil {
			t.Fatalf("NewOpaque error: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil {
			t.Fatalf("token is not base64url: %v", err)
		}
		if len(raw) < MinBytes {
			t.Fatalf("token entropy %d bytes, want >= %d", len(raw), MinBytes)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token generated")
		}
		seen[tok] = struct{}{}
	}
}

func TestHash_DeterministicAndPeppered(t *testing.T) {
	t.Parallel()

	a := Hash("token-value", []byte("pepper-one"))
	b := Hash("token-value", []byte("pepper-one"))
	c := Hash("token-value", []byte("pepper-two"))
	d := Hash("token-other", []byte("pepper-one"))

	if a != b {
		t.Fatalf("hash must be deterministic")
	}
	if a == c {
		t.Fatalf("hash must depend on pepper")
	}
	if a == d {
		t.Fatalf("hash must depend on token")
	}
	if len(a) != 64 {
		t.Fatalf("digest length=%d want 64", len(a))
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want bool
	}{
		{a: "abc", b: "abc", want: true},
		{a: "abc", b: "abd", want: false},
		{a: "abc", b: "abcd", want: false},
		{a: "", b: "", want: false},
	}
	for _, tc := range cases {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Fatalf("Equal(%q,%q)=%v want=%v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestPepperFromEnv(t *testing.T) {
	t.Setenv(PepperEnvKey, "")

	p, err := PepperFromEnv(false)
	if err != nil || string(p) != DevPepper {
		t.Fatalf("dev fallback: pepper=%q err=%v", p, err)
	}

	if _, err := PepperFromEnv(true); err != ErrPepperMissing {
		t.Fatalf("production without pepper: err=%v want ErrPepperMissing", err)
	}

	t.Setenv(PepperEnvKey, "short")
	if _, err := PepperFromEnv(true); err != ErrPepperTooShort {
		t.Fatalf("production short pepper: err=%v want ErrPepperTooShort", err)
	}

	t.Setenv(PepperEnvKey, "0123456789abcdef0123456789abcdef")
	p, err = PepperFromEnv(true)
	if err != nil || string(p) != "0123456789abcdef0123456789abcdef" {
		t.Fatalf("production pepper: pepper=%q err=%v", p, err)
	}
}
