// Package identity holds MovieScore's credential model and its persistence.
//
// It defines the entities the auth core works on (users, credentials,
// sessions, reset tokens, recovery codes), the typed error kinds shared by
// every layer, and Store: the credential store over a store.Engine.
//
// The store only persists and queries rows. Lockout thresholds, expiry policy
// and every other business rule live in the auth packages.
package identity
