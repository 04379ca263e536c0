package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Crypto errors.
	ErrDecoding   = errors.New("decoding error")
	ErrDecryption = errors.New("decryption failed")

	// Session errors.
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired")

	// Vault errors.
	ErrMasterPasswordInvalid = errors.New("master password invalid")
	ErrVaultCorrupt          = errors.New("vault corrupt: verification record missing")
	ErrEmptyVault            = errors.New("vault is empty")
	ErrVaultLocked           = errors.New("vault is locked")
	ErrUnlockInProgress      = errors.New("unlock already in progress")
	ErrUnlockInterrupted     = errors.New("vault was locked while unlocking")
	ErrRecordSkipped         = errors.New("record decryption skipped")

	// Router errors.
	ErrNoPendingSave  = errors.New("no pending save")
	ErrInvalidRequest = errors.New("invalid request")
)
