// Package vault holds the decrypted working set of a user's credentials.
//
// An Engine starts locked. Unlock authenticates a master password against
// the account's verification record, then decrypts every other record with
// a key derived from that record's own salt. The engine is unlocked exactly
// while it holds a master key; the credential map is present iff the key
// is. Lock drops both.
package vault
