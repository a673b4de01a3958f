// Package common defines shared constants and sentinel errors used across
// marketfeed components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Command validation errors.
	ErrorValidation = errors.New("validation error")

	// Keyring errors (wrong passphrase or corrupted key material).
	ErrInvalidPassphrase = errors.New("invalid passphrase")

	// Engine errors.
	ErrVendorNotTracked = errors.New("vendor not tracked")
	ErrNoSecretKey      = errors.New("no secret key for vendor")
)
