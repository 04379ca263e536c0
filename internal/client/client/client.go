package client

import (
	"context"

	"github.com/dmitrijs2005/pmvault/internal/api"
)

// Client is the remote credential store as seen by the agent. Calls that
// act on behalf of a user take the session token explicitly.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Signup(ctx context.Context, username, password string, verification api.Credential) error
	Login(ctx context.Context, username, password string, ttlMinutes int) (*api.LoginResponse, error)
	ReadUser(ctx context.Context, token string) (string, error)
	ListCredentials(ctx context.Context, token string) ([]api.Credential, error)
	CreateCredential(ctx context.Context, token string, c api.Credential) (*api.CreateCredentialResponse, error)
	ExportVault(ctx context.Context, token string) (*api.ExportVaultResponse, error)
}
