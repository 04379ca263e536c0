package client

import "errors"

var (
	// ErrUnavailable means the store could not be reached in time.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized means the token or the account credentials were rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict means the username is already taken.
	ErrConflict = errors.New("already exists")
	// ErrRejected means the request failed validation; the server message is
	// wrapped with it.
	ErrRejected = errors.New("request rejected")
)
