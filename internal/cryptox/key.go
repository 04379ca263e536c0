package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/pmvault/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 iteration count used for every record.
	DefaultIterations = 300_000

	KeySize   = 32
	SaltSize  = 16
	NonceSize = 12
)

// ErrKeyDestroyed is returned when a destroyed key is used.
var ErrKeyDestroyed = errors.New("key destroyed")

// Key is a derived AES-256 key. The raw bytes are not exposed.
type Key struct {
	mu      sync.Mutex
	enclave *memguard.Enclave
}

func newKey(raw []byte) *Key {
	// NewEnclave wipes raw.
	return &Key{enclave: memguard.NewEnclave(raw)}
}

// Destroy drops the sealed key material. Using the key afterwards fails with
// ErrKeyDestroyed. Destroy is safe on a nil key and may be called repeatedly.
func (k *Key) Destroy() {
	if k == nil {
		return
	}
	k.mu.Lock()
	k.enclave = nil
	k.mu.Unlock()
}

// Alive reports whether the key can still be used.
func (k *Key) Alive() bool {
	if k == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.enclave != nil
}

func (k *Key) aead() (cipher.AEAD, error) {
	if k == nil {
		return nil, ErrKeyDestroyed
	}
	k.mu.Lock()
	e := k.enclave
	k.mu.Unlock()
	if e == nil {
		return nil, ErrKeyDestroyed
	}

	buf, err := e.Open()
	if err != nil {
		return nil, fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()

	block, err := aes.NewCipher(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// DeriveKey derives a 256-bit AES-GCM key from password and salt with
// PBKDF2-HMAC-SHA256. The same inputs always produce the same key.
func DeriveKey(password string, salt []byte, iterations int) (*Key, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", common.ErrDecoding)
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations must be positive", common.ErrDecoding)
	}
	raw := pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
	return newKey(raw), nil
}

// DeriveKeyB64 is DeriveKey with a base64 (std encoding) salt.
func DeriveKeyB64(password, saltB64 string, iterations int) (*Key, error) {
	salt, err := decodeB64("salt", saltB64)
	if err != nil {
		return nil, err
	}
	return DeriveKey(password, salt, iterations)
}

func decodeB64(field, s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty %s", common.ErrDecoding, field)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrDecoding, field, err)
	}
	return b, nil
}
