// Package acceptkeys stores the per-invitation accept keys. Their ids are
// generated fresh and never reused as access key ids.
package acceptkeys

import (
	"context"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, key *models.AcceptKey) error
	Get(ctx context.Context, keyID, budgetID uuid.UUID) (*models.AcceptKey, error)
	Delete(ctx context.Context, keyID, budgetID uuid.UUID) error
	// DeleteExpired removes keys (and, by cascade, their invitations) that
	// expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
