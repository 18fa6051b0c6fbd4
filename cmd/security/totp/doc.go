// Package totp implements RFC 6238 time-based one-time passwords for the
// second login factor: secret generation, otpauth:// provisioning URIs, and
// verification within a small window of neighbouring time steps.
//
// Secrets are exchanged as unpadded base32 text. Callers persist them through
// the atrest package; this package never stores anything.
package totp
