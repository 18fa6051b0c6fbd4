// Package account is the MovieScore auth core.
//
// It orchestrates registration, login (lockout, then password, then the
// optional second factor), password reset and two-factor enrollment on top of
// the credential store, and delegates token lifecycle to the session package.
// Every failure is an identity.OpError whose Kind maps to a transport status
// at the delivery edge.
package account
