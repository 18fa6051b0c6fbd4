// Package session implements opaque-token sessions for MovieScore.
//
// A session is one row holding the hashes of an access token (short TTL) and
// a refresh token (long TTL). Raw tokens are returned to the caller once and
// never stored. Refresh rotates both tokens in place on the same row; the
// swap is conditional on the old refresh hash, so a superseded refresh token
// can never be redeemed again.
package session
