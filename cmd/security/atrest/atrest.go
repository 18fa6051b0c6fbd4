// Package atrest encrypts small secrets (TOTP seeds) before they are persisted.
//
// Ciphertexts are AES-256-GCM with a fresh 12-byte nonce per call, stored as
// base64(nonce || sealed). The key comes from MOVIESCORE_ENCRYPTION_KEY
// (base64, 32 bytes); outside production a key derived from a fixed seed is used.
package atrest

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeyEnvKey is the env var holding the base64-encoded 32-byte key.
	// #nosec G101 -- not a credential; it's an environment variable name.
	KeyEnvKey = "MOVIESCORE_ENCRYPTION_KEY"

	// KeySize is the AES-256 key length.
	KeySize = 32

	nonceSize = 12
	devSeed   = "moviescore-dev-encryption-key"
)

var (
	ErrKeyMissing    = errors.New("encryption key missing")
	ErrKeyInvalid    = errors.New("encryption key must be base64-encoded 32 bytes")
	ErrMalformed     = errors.New("encrypted value has invalid format")
	ErrDecryptFailed = errors.New("decryption failed")
)

// Cipher seals and opens values with a single AES-GCM key.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a raw 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeyInvalid
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt returns base64(nonce || ciphertext) for plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize, nonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or foreign ciphertexts return ErrDecryptFailed.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil || len(raw) < nonceSize+c.aead.Overhead() {
		return "", ErrMalformed
	}
	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

// KeyFromEnv resolves the encryption key.
// Production refuses to run without a configured key.
func KeyFromEnv(production bool) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(KeyEnvKey))
	if raw == "" {
		if production {
			return nil, ErrKeyMissing
		}
		return DevKey(), nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(key) != KeySize {
		return nil, ErrKeyInvalid
	}
	return key, nil
}

// DevKey derives the deterministic development key.
func DevKey() []byte {
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, []byte(devSeed), nil, []byte("moviescore at-rest v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf can only fail past 255*hash-size bytes.
		panic(err)
	}
	return key
}

// FromEnv is KeyFromEnv followed by New.
func FromEnv(production bool) (*Cipher, error) {
	key, err := KeyFromEnv(production)
	if err != nil {
		return nil, err
	}
	return New(key)
}
