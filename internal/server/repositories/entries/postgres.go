// Package entries provides PostgreSQL-backed storage for budget entries.
// Entry blobs are updated through the digest-guarded blobs repository.
package entries

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new entry. A category from another budget is rejected by
// the WHERE clause and reported as common.ErrorNotFound.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.Entry) error {
	query := `
		INSERT INTO entries (id, budget_id, category_id, encrypted_blob, encrypted_blob_digest)
		SELECT $1, $2, $3, $4, $5
		WHERE $3::uuid IS NULL
		   OR EXISTS (SELECT 1 FROM categories WHERE id = $3 AND budget_id = $2)
	`
	res, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.BudgetID, entry.CategoryID, entry.EncryptedBlob, entry.EncryptedBlobDigest)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// ListByBudget returns every entry of the budget.
func (r *PostgresRepository) ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Entry, error) {
	query := `
		SELECT id, budget_id, category_id, encrypted_blob, encrypted_blob_digest, modified_at
		FROM entries
		WHERE budget_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.BudgetID, &e.CategoryID, &e.EncryptedBlob, &e.EncryptedBlobDigest, &e.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// Delete removes an entry scoped to its budget.
func (r *PostgresRepository) Delete(ctx context.Context, id, budgetID uuid.UUID) error {
	query := `
		DELETE FROM entries
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
