package budgets

import (
	"context"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, budget *models.Budget) error
	// Get returns the budget row without categories and entries.
	Get(ctx context.Context, id uuid.UUID) (*models.Budget, error)
	// LockForUpdate row-locks the budget until the transaction ends.
	LockForUpdate(ctx context.Context, id uuid.UUID) error
	// DeleteIfUnreferenced deletes the budget when no access key points at it
	// and reports whether it did.
	DeleteIfUnreferenced(ctx context.Context, id uuid.UUID) (bool, error)
}
