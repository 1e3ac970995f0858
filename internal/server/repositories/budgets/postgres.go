// Package budgets provides PostgreSQL-backed storage for budget rows.
package budgets

import (
	"context"
	"database/sql"
	"errors"
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

func (r *PostgresRepository) Create(ctx context.Context, b *models.Budget) error {
	query := `
		INSERT INTO budgets (id, encrypted_blob, encrypted_blob_digest)
		VALUES ($1, $2, $3)
		RETURNING modified_at
	`
	if err := r.db.QueryRowContext(ctx, query, b.ID, b.EncryptedBlob, b.EncryptedBlobDigest).Scan(&b.ModifiedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*models.Budget, error) {
	query := `
		SELECT id, encrypted_blob, encrypted_blob_digest, modified_at
		FROM budgets
		WHERE id = $1
	`
	b := &models.Budget{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.EncryptedBlob, &b.EncryptedBlobDigest, &b.ModifiedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT id FROM budgets WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteIfUnreferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		DELETE FROM budgets b
		WHERE b.id = $1
		  AND NOT EXISTS (SELECT 1 FROM budget_access_keys k WHERE k.budget_id = b.id)
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}
