// Package accesskeys stores budget access keys, the source of truth behind
// budget access tokens. Deleting a row revokes every token signed by its key.
package accesskeys

import (
	"context"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/google/uuid"
)

// KeyRef names one key of one budget.
type KeyRef struct {
	KeyID    uuid.UUID
	BudgetID uuid.UUID
}

type Repository interface {
	// Create stores a key. The caller generates KeyID.
	Create(ctx context.Context, key *models.AccessKey) error

	// Get returns common.ErrorNotFound when no such key is bound to the budget.
	Get(ctx context.Context, keyID, budgetID uuid.UUID) (*models.AccessKey, error)

	// GetMultiple returns the keys that exist among refs, in no particular order.
	GetMultiple(ctx context.Context, refs []KeyRef) ([]*models.AccessKey, error)

	// Delete returns common.ErrorNotFound when nothing was deleted.
	Delete(ctx context.Context, keyID, budgetID uuid.UUID) error

	CountForBudget(ctx context.Context, budgetID uuid.UUID) (int, error)
}
