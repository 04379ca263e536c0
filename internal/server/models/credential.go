package models

import (
	"time"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/common"
)

// Credential is an encrypted credential row. Ciphertext, IV and Salt are
// stored exactly as the client sent them.
type Credential struct {
	ID          string
	UserID      string
	Domain      string
	URL         string
	Username    string
	Ciphertext  string
	IV          string
	Salt        string
	Description string
	CreatedAt   time.Time
}

// Complete reports whether all three encrypted fields are present.
func (c *Credential) Complete() bool {
	return c.Ciphertext != "" && c.IV != "" && c.Salt != ""
}

// IsVerification reports whether c is the account's verification record.
func (c *Credential) IsVerification() bool {
	return c.Domain == common.VerificationDomain
}

// FromAPI converts a wire record into a row; the id is left to the database.
func FromAPI(c api.Credential) *Credential {
	return &Credential{
		Domain:      c.Domain,
		URL:         c.URL,
		Username:    c.Username,
		Ciphertext:  c.Ciphertext,
		IV:          c.IV,
		Salt:        c.Salt,
		Description: c.Description,
	}
}

// API converts a row into its wire form.
func (c *Credential) API() api.Credential {
	return api.Credential{
		ID:          c.ID,
		Domain:      c.Domain,
		URL:         c.URL,
		Username:    c.Username,
		Ciphertext:  c.Ciphertext,
		IV:          c.IV,
		Salt:        c.Salt,
		Description: c.Description,
	}
}
