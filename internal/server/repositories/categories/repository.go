package categories

import (
	"context"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, category *models.Category) error
	ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Category, error)
	Delete(ctx context.Context, id, budgetID uuid.UUID) error
}
