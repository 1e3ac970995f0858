package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a stored session refresh token. Only a digest of the
// token string is persisted.
type RefreshToken struct {
	UserID    uuid.UUID
	TokenHash []byte
	ExpiresAt time.Time
}
