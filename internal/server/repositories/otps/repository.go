// Package otps stores one-time sign-in codes, at most one per account.
package otps

import (
	"context"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
)

type Repository interface {
	// Upsert replaces any code previously issued for the account.
	Upsert(ctx context.Context, otp *models.OneTimeCode) error
	GetForUpdate(ctx context.Context, email string) (*models.OneTimeCode, error)
	Delete(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
