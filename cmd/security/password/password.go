package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Hash hashes a password using PBKDF2-SHA256 and returns an encoded hash string.
// Format:
// pbkdf2_sha256$<iterations>$<salt_b64>$<hash_b64>
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, c.Params.Iterations, c.Params.KeyLength, sha256.New)

	b64 := base64.StdEncoding
	return fmt.Sprintf(
		"%s$%d$%s$%s",
		Algorithm,
		c.Params.Iterations,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify checks whether password matches the given encoded hash.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported hashes.
// It never panics on attacker-controlled input.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	iterations, salt, expected, err := decode(encodedHash)
	if err != nil {
		return false, err
	}

	// Anti-DoS boundary: refuse to verify if the stored cost is wildly above
	// what we would configure ourselves.
	if iterations > c.Params.Iterations*4 {
		return false, ErrInvalidHash
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)

	// Constant-time compare.
	if subtle.ConstantTimeCompare(key, expected) == 1 {
		return true, nil
	}
	return false, nil
}

// decode parses the encoded hash and returns iterations, salt and expected key.
func decode(encoded string) (int, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != Algorithm {
		return 0, nil, nil, ErrInvalidHash
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return 0, nil, nil, ErrInvalidHash
	}

	b64 := base64.StdEncoding
	salt, err := b64.DecodeString(parts[2])
	if err != nil || len(salt) < 8 || len(salt) > 64 {
		return 0, nil, nil, ErrInvalidHash
	}
	hash, err := b64.DecodeString(parts[3])
	if err != nil || len(hash) < 16 || len(hash) > 128 {
		return 0, nil, nil, ErrInvalidHash
	}

	return iterations, salt, hash, nil
}
