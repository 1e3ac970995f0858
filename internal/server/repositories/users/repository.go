package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetPublicKey(ctx context.Context, email string) (*models.UserPublicKey, error)
	GetPublicKeyIDForUpdate(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	SetPublicKey(ctx context.Context, id uuid.UUID, key *models.UserPublicKey) error
	Delete(ctx context.Context, id uuid.UUID) error
	// MarkVerified flags the account as having proven ownership of its email.
	MarkVerified(ctx context.Context, id uuid.UUID) error
	// DeleteUnverifiedBefore removes accounts never verified and created
	// before cutoff.
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
