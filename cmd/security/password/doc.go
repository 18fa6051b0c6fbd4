// Package password provides password hashing and verification utilities for MovieScore.
//
// It implements PBKDF2-SHA256 hashing with an encoded string format and includes:
// - Configurable PBKDF2 parameters (via environment variables)
// - Password policy validation (length and character classes)
// - Strict hash decoding and verification with anti-DoS bounds
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes whose iteration count exceeds reasonable bounds.
package password
