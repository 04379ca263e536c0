// Package common contains shared constants and sentinel errors used across
// pmvault components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// VerificationDomain is the reserved domain of the per-account verification
// record. Records with this domain never show up in decrypted listings.
const VerificationDomain = "password-manager"

// VerificationPrefix prefixes the username to build the verification plaintext.
const VerificationPrefix = "PM:"

// VerificationPlaintext returns the sentinel plaintext bound to username.
func VerificationPlaintext(username string) string {
	return VerificationPrefix + username
}
