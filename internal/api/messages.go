package api

import (
	"time"

	"github.com/dmitrijs2005/pmvault/internal/common"
)

// Credential is an encrypted credential record as stored remotely.
// Ciphertext, IV and Salt are base64 (std encoding).
type Credential struct {
	ID          string `json:"id,omitempty"`
	Domain      string `json:"domain"`
	URL         string `json:"url,omitempty"`
	Username    string `json:"username"`
	Ciphertext  string `json:"ciphertext"`
	IV          string `json:"iv"`
	Salt        string `json:"salt"`
	Description string `json:"description,omitempty"`
}

// Complete reports whether all three encrypted fields are present.
func (c Credential) Complete() bool {
	return c.Ciphertext != "" && c.IV != "" && c.Salt != ""
}

// IsVerification reports whether c is the account's verification record.
func (c Credential) IsVerification() bool {
	return c.Domain == common.VerificationDomain
}

type SignupRequest struct {
	Username     string     `json:"username"`
	Password     string     `json:"password"`
	Verification Credential `json:"verification"`
}

type SignupResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	TTLMinutes int    `json:"ttl"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ReadUserRequest struct{}

type ReadUserResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type ListCredentialsRequest struct{}

type ListCredentialsResponse struct {
	Credentials []Credential `json:"credentials"`
}

type CreateCredentialRequest struct {
	Credential Credential `json:"credential"`
}

type CreateCredentialResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type ExportVaultRequest struct{}

// ExportVaultResponse points at an uploaded copy of the caller's encrypted
// records. URL is a presigned GET link valid until ExpiresAt.
type ExportVaultResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}
