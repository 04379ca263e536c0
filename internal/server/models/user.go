// Package models holds the rows stored by the credential store server.
package models

import "time"

type User struct {
	ID           string
	UserName     string
	PasswordSalt []byte
	PasswordHash []byte
	CreatedAt    time.Time
}
