package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/pmvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// HashPassword hashes an account password with argon2id. A fresh 32-byte
// salt is generated and returned with the hash.
func HashPassword(password []byte) (salt, hash []byte) {
	salt = common.GenerateRandByteArray(32)
	return salt, hashPassword(password, salt)
}

// VerifyPassword checks password against a stored salt and hash in
// constant time.
func VerifyPassword(password, salt, hash []byte) bool {
	candidate := hashPassword(password, salt)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}

func hashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}
