package signinnonces

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, email string, nonce int32) error {
	query := `INSERT INTO signin_nonces (user_email, nonce) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, email, nonce); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, email string) (int32, error) {
	return r.get(ctx, `SELECT nonce FROM signin_nonces WHERE user_email = $1`, email)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, email string) (int32, error) {
	return r.get(ctx, `SELECT nonce FROM signin_nonces WHERE user_email = $1 FOR UPDATE`, email)
}

func (r *PostgresRepository) get(ctx context.Context, query, email string) (int32, error) {
	var nonce int32
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&nonce); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return nonce, nil
}

func (r *PostgresRepository) Set(ctx context.Context, email string, nonce int32) error {
	query := `UPDATE signin_nonces SET nonce = $1 WHERE user_email = $2`
	res, err := r.db.ExecContext(ctx, query, nonce, email)
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
