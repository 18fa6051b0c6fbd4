package account

import (
	"crypto/rand"
	"encoding/base32"
	"strings"

	"github.com/gouveags/moviescore/cmd/security/token"
)

const recoveryCodeBytes = 10

var recoveryEnc = base32.StdEncoding.WithPadding(base32.NoPadding)

// newRecoveryCodes returns n display codes (xxxx-xxxx-xxxx-xxxx) and their hashes.
func newRecoveryCodes(n int, pepper []byte) (codes, hashes []string, err error) {
	codes = make([]string, n)
	hashes = make([]string, n)
	for i := 0; i < n; i++ {
		b := make([]byte, recoveryCodeBytes)
		if _, err := rand.Read(b); err != nil {
			return nil, nil, err
		}
		raw := strings.ToLower(recoveryEnc.EncodeToString(b))
		codes[i] = raw[0:4] + "-" + raw[4:8] + "-" + raw[8:12] + "-" + raw[12:16]
		hashes[i] = token.Hash(raw, pepper)
	}
	return codes, hashes, nil
}

// hashRecoveryCode hashes a user-typed code. Case, dashes and spaces are ignored.
func hashRecoveryCode(code string, pepper []byte) string {
	norm := strings.ToLower(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(code)))
	return token.Hash(norm, pepper)
}
