package vault

import (
	"context"

	"github.com/dmitrijs2005/pmvault/internal/api"
)

type State int

const (
	Locked State = iota
	Unlocking
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	}
	return "unknown"
}

// Credential is a decrypted credential. It only exists in memory while the
// vault is unlocked.
type Credential struct {
	ID          string `json:"id"`
	Domain      string `json:"domain"`
	URL         string `json:"url,omitempty"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Description string `json:"description,omitempty"`
}

// NewCredential is the input of CreateCredential. The stored domain is
// derived from URL when it has a host, otherwise from Domain.
type NewCredential struct {
	URL         string
	Domain      string
	Username    string
	Password    string
	Description string
}

type SkippedRecord struct {
	ID string
	// Err wraps common.ErrRecordSkipped.
	Err error
}

// UnlockReport summarises a successful unlock.
type UnlockReport struct {
	Decrypted int
	Skipped   []SkippedRecord
}

// Persister stores a new encrypted record remotely and returns its id.
type Persister interface {
	CreateCredential(ctx context.Context, c api.Credential) (*api.CreateCredentialResponse, error)
}

// PersistFunc adapts a function to Persister.
type PersistFunc func(ctx context.Context, c api.Credential) (*api.CreateCredentialResponse, error)

func (f PersistFunc) CreateCredential(ctx context.Context, c api.Credential) (*api.CreateCredentialResponse, error) {
	return f(ctx, c)
}
