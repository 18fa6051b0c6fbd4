// Package token provides opaque bearer-token primitives for MovieScore.
//
// It is the single source of truth for how session, reset and recovery tokens
// are generated and stored:
// - Tokens are >= 32 random bytes, base64url encoded, and live only on the client.
// - The server stores HMAC-SHA256(token, pepper) as a 64-char hex digest.
// - Digests are compared in constant time.
//
// Environment:
//   - MOVIESCORE_TOKEN_PEPPER: server-held pepper. Required in production; a fixed
//     development value is used otherwise.
package token
