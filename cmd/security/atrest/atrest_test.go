package atrest

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New(bytes.Repeat([]byte{7}, KeySize))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return c
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := testCipher(t)

	for _, in := range []string{"JBSWY3DPEHPK3PXP", "", "with spaces and ünïcode"} {
		enc, err := c.Encrypt(in)
		if err != nil {
			t.Fatalf("Encrypt error: %v", err)
		}
		if enc == in && in != "" {
			t.Fatalf("ciphertext equals plaintext")
		}
		out, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt error: %v", err)
		}
		if out != in {
			t.Fatalf("round trip got %q want %q", out, in)
		}
	}
}

func TestEncrypt_NoncePrefixUnique(t *testing.T) {
	c := testCipher(t)

	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	if a == b {
		t.Fatalf("expected different ciphertexts for repeated plaintext")
	}

	rawA, _ := base64.StdEncoding.DecodeString(a)
	rawB, _ := base64.StdEncoding.DecodeString(b)
	if bytes.Equal(rawA[:nonceSize], rawB[:nonceSize]) {
		t.Fatalf("nonce reused")
	}
}

func TestDecrypt_TamperAndWrongKey(t *testing.T) {
	c := testCipher(t)
	enc, _ := c.Encrypt("secret")

	raw, _ := base64.StdEncoding.DecodeString(enc)
	raw[len(raw)-1] ^= 0xff
	if _, err := c.Decrypt(base64.StdEncoding.EncodeToString(raw)); err != ErrDecryptFailed {
		t.Fatalf("tampered: err=%v want ErrDecryptFailed", err)
	}

	other, _ := New(bytes.Repeat([]byte{9}, KeySize))
	if _, err := other.Decrypt(enc); err != ErrDecryptFailed {
		t.Fatalf("wrong key: err=%v want ErrDecryptFailed", err)
	}

	if _, err := c.Decrypt("not base64!"); err != ErrMalformed {
		t.Fatalf("garbage: err=%v want ErrMalformed", err)
	}
	if _, err := c.Decrypt(base64.StdEncoding.EncodeToString([]byte("short"))); err != ErrMalformed {
		t.Fatalf("short: err=%v want ErrMalformed", err)
	}
}

func TestKeyFromEnv(t *testing.T) {
	t.Setenv(KeyEnvKey, "")

	if _, err := KeyFromEnv(true); err != ErrKeyMissing {
		t.Fatalf("production without key: err=%v want ErrKeyMissing", err)
	}

	k1, err := KeyFromEnv(false)
	if err != nil {
		t.Fatalf("dev key error: %v", err)
	}
	k2 := DevKey()
	if !bytes.Equal(k1, k2) || len(k1) != KeySize {
		t.Fatalf("dev key must be deterministic and %d bytes", KeySize)
	}

	t.Setenv(KeyEnvKey, base64.StdEncoding.EncodeToString([]byte("too short")))
	if _, err := KeyFromEnv(true); err != ErrKeyInvalid {
		t.Fatalf("short key: err=%v want ErrKeyInvalid", err)
	}

	want := bytes.Repeat([]byte{1}, KeySize)
	t.Setenv(KeyEnvKey, base64.StdEncoding.EncodeToString(want))
	got, err := KeyFromEnv(true)
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("configured key: got=%x err=%v", got, err)
	}
}

func TestNew_RejectsBadKeySize(t *testing.T) {
	if _, err := New([]byte("0123456789abcdef")); err != ErrKeyInvalid {
		t.Fatalf("16-byte key: err=%v want ErrKeyInvalid", err)
	}
}
