// Package models holds the server-side records persisted by the repositories.
// Encrypted fields are opaque to the server.
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	Email          string
	IsVerified     bool
	PublicKeyID    uuid.UUID
	PublicKey      []byte
	AuthStringHash string
	CreatedAt      time.Time
}

// UserPublicKey is the recipient key used to encrypt invitations.
type UserPublicKey struct {
	ID    uuid.UUID
	Value []byte
}

// OneTimeCode is the second sign-in factor, one per account.
type OneTimeCode struct {
	Email      string
	Code       string
	Expiration time.Time
}
