// Package refreshtokens stores single-use session refresh tokens, keyed by
// the digest of the token string.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	// Consume deletes the token and returns what it was bound to, so a token
	// can be redeemed at most once. Unknown tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
