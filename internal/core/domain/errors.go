package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAccountExists      = errors.New("account already exists")
	ErrRateLimited        = errors.New("too many sign-in attempts")
	ErrInvalidAssertion   = errors.New("invalid federated assertion")
	ErrStoreUnavailable   = errors.New("profile store unavailable")
	ErrStoreConflict      = errors.New("profile store conflict")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrNoActiveSession    = errors.New("no active session")
	ErrInvalidProfile     = errors.New("invalid profile update")
	ErrUnknown            = errors.New("unknown error")
)
