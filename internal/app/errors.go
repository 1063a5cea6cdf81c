package app

import "errors"

var (
	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password so responses never enable account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned when registration hits an existing email.
	ErrEmailTaken = errors.New("user already registered")

	// ErrAccountNotFound is returned when the authenticated subject has no
	// matching account row.
	ErrAccountNotFound = errors.New("user not found")

	// ErrRefreshRejected is returned when a presented refresh token fails
	// verification.
	ErrRefreshRejected = errors.New("refresh token rejected")

	// ErrValidation wraps all malformed-input failures.
	ErrValidation = errors.New("validation failed")
)
