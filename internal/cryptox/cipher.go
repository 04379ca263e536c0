package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/pmvault/internal/common"
)

// Payload is the transport form of an encrypted value. All fields are
// base64 (std encoding); the GCM tag is appended to Ciphertext.
type Payload struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
}

// Complete reports whether all three fields are present.
func (p Payload) Complete() bool {
	return p.Ciphertext != "" && p.IV != "" && p.Salt != ""
}

// Encrypt encrypts plaintext under a key derived from password and a fresh
// random salt. Every call draws a new salt and a new IV.
func Encrypt(plaintext, password string, iterations int) (*Payload, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key, err := DeriveKey(password, salt, iterations)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	return EncryptWithKey(plaintext, key, salt)
}

// EncryptWithKey seals plaintext with an already derived key. salt must be
// the salt key was derived from; it is only recorded in the payload.
func EncryptWithKey(plaintext string, key *Key, salt []byte) (*Payload, error) {
	aead, err := key.aead()
	if err != nil {
		return nil, err
	}

	iv := make([]byte, NonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	ct := aead.Seal(nil, iv, []byte(plaintext), nil)

	return &Payload{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// Decrypt opens p. When key is non-nil it must have been derived from
// p.Salt and is used as is; otherwise a key is derived from password.
//
// Malformed input fails with common.ErrDecoding, an authentication failure
// (wrong key, tampered data) with common.ErrDecryption.
func Decrypt(p Payload, password string, iterations int, key *Key) (string, error) {
	ct, err := decodeB64("ciphertext", p.Ciphertext)
	if err != nil {
		return "", err
	}
	iv, err := decodeB64("iv", p.IV)
	if err != nil {
		return "", err
	}
	if len(iv) != NonceSize {
		return "", fmt.Errorf("%w: iv must be %d bytes, got %d", common.ErrDecoding, NonceSize, len(iv))
	}

	if key == nil {
		derived, err := DeriveKeyB64(password, p.Salt, iterations)
		if err != nil {
			return "", err
		}
		defer derived.Destroy()
		key = derived
	}

	aead, err := key.aead()
	if err != nil {
		return "", err
	}

	pt, err := aead.Open(nil, iv, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return string(pt), nil
}
