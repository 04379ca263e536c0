// Package cryptox holds the cryptographic primitives of the vault protocol:
// PBKDF2 key derivation, AES-256-GCM encryption with base64 transport
// encoding, account password hashing and a local token expiry pre-check.
//
// Derived keys are opaque (*Key). Their bytes stay sealed in a memguard
// enclave and are only opened for the duration of a single seal/open call.
package cryptox
