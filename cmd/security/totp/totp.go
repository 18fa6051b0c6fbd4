package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" // #nosec G505 -- RFC 6238 default; authenticator apps expect SHA1.
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultIssuer = "MovieScore"
	DefaultPeriod = 30
	DefaultDigits = 6
	DefaultSkew   = 1

	secretBytes = 20
)

var (
	ErrInvalidSecret        = errors.New("totp secret is not valid base32")
	ErrUnsupportedAlgorithm = errors.New("unsupported totp algorithm")
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Engine holds TOTP parameters. The zero value is not usable; see New.
type Engine struct {
	Issuer    string
	Period    int
	Digits    int
	Skew      int
	Algorithm string
}

// New returns an engine with MovieScore defaults (30s steps, 6 digits, ±1 step, SHA1).
func New(issuer string) Engine {
	if strings.TrimSpace(issuer) == "" {
		issuer = DefaultIssuer
	}
	return Engine{
		Issuer:    issuer,
		Period:    DefaultPeriod,
		Digits:    DefaultDigits,
		Skew:      DefaultSkew,
		Algorithm: "SHA1",
	}
}

// GenerateSecret returns a fresh 160-bit secret as unpadded base32.
func (e Engine) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// URI consumed by authenticator apps.
func (e Engine) ProvisioningURI(account, secret string) string {
	label := url.PathEscape(e.Issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", e.Issuer)
	v.Set("period", strconv.Itoa(e.Period))
	v.Set("digits", strconv.Itoa(e.Digits))
	v.Set("algorithm", strings.ToUpper(e.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify reports whether code matches secret at now, allowing Skew steps either side.
// Malformed codes and secrets simply fail to verify.
func (e Engine) Verify(code, secret string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != e.Digits || !numeric(code) {
		return false
	}
	key, err := decodeSecret(secret)
	if err != nil || len(key) == 0 {
		return false
	}

	base := now.Unix() / int64(e.Period)
	ok := false
	for step := -e.Skew; step <= e.Skew; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		want, err := hotp(key, counter, e.Digits, e.Algorithm)
		if err != nil {
			return false
		}
		// no early exit: every window step costs the same
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			ok = true
		}
	}
	return ok
}

// Code returns the code for secret at t.
func (e Engine) Code(secret string, t time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotp(key, t.Unix()/int64(e.Period), e.Digits, e.Algorithm)
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	s = strings.TrimRight(s, "=")
	key, err := b32.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidSecret
	}
	return key, nil
}

func hotp(key []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

func numeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
