package acceptkeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, key *models.AcceptKey) error {
	query := `
		INSERT INTO budget_accept_keys (key_id, budget_id, public_key, expiration, read_only)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, key.KeyID, key.BudgetID, key.PublicKey, key.Expiration, key.ReadOnly); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, keyID, budgetID uuid.UUID) (*models.AcceptKey, error) {
	query := `
		SELECT key_id, budget_id, public_key, expiration, read_only
		FROM budget_accept_keys
		WHERE key_id = $1 AND budget_id = $2
	`
	k := &models.AcceptKey{}
	err := r.db.QueryRowContext(ctx, query, keyID, budgetID).
		Scan(&k.KeyID, &k.BudgetID, &k.PublicKey, &k.Expiration, &k.ReadOnly)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return k, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, keyID, budgetID uuid.UUID) error {
	query := `
		DELETE FROM budget_accept_keys
		WHERE key_id = $1 AND budget_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, keyID, budgetID)
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

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM budget_accept_keys WHERE expiration < $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
