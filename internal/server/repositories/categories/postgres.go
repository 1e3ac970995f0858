// Package categories provides PostgreSQL-backed storage for budget categories.
package categories

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (id, budget_id, encrypted_blob, encrypted_blob_digest)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.BudgetID, c.EncryptedBlob, c.EncryptedBlobDigest); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Category, error) {
	query := `
		SELECT id, budget_id, encrypted_blob, encrypted_blob_digest, modified_at
		FROM categories
		WHERE budget_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.BudgetID, &c.EncryptedBlob, &c.EncryptedBlobDigest, &c.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// Delete removes a category scoped to its budget. Entries in the category
// keep existing with a NULL category.
func (r *PostgresRepository) Delete(ctx context.Context, id, budgetID uuid.UUID) error {
	query := `
		DELETE FROM categories
		WHERE id = $1 AND budget_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, budgetID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
