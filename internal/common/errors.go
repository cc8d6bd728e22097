// Package common defines shared sentinel errors and small utilities used
// across the sync engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrStorage  = errors.New("storage error")

	// Input validation, failed before any I/O.
	ErrValidation = errors.New("validation error")

	// Signup against an email that already has a local identity.
	ErrDuplicateIdentity = errors.New("identity already exists")

	// Remote identity provider rejected the credentials or the account.
	// Never retried automatically.
	ErrRemoteAuth = errors.New("remote authentication rejected")

	// Local credential check failed (offline login against the stored hash).
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Transient transport-level failure. Retried with backoff.
	ErrNetwork = errors.New("network unavailable")

	// Corrupt or tampered ciphertext. Fatal for the affected item.
	ErrCrypto = errors.New("crypto error")
)
