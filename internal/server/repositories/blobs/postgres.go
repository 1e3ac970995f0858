package blobs

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/cryptox"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, t Target, blob []byte) error {
	if !t.Table.Valid() || t.Table.Scoped() || t.Table == Budgets {
		return fmt.Errorf("unsupported blob table %q", t.Table)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, encrypted_blob, encrypted_blob_digest)
		VALUES ($1, $2, $3)
	`, t.Table)
	if _, err := r.db.ExecContext(ctx, query, t.ID, blob, cryptox.Digest(blob)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, t Target, blob, expectedDigest []byte) ([]byte, error) {
	if !t.Table.Valid() {
		return nil, fmt.Errorf("unknown blob table %q", t.Table)
	}

	var (
		selectQuery string
		args        []any
	)
	if t.Table.Scoped() {
		selectQuery = fmt.Sprintf(`
			SELECT encrypted_blob_digest FROM %s
			WHERE id = $1 AND budget_id = $2
			FOR UPDATE
		`, t.Table)
		args = []any{t.ID, t.BudgetID}
	} else {
		selectQuery = fmt.Sprintf(`
			SELECT encrypted_blob_digest FROM %s
			WHERE id = $1
			FOR UPDATE
		`, t.Table)
		args = []any{t.ID}
	}

	var current []byte
	if err := r.db.QueryRowContext(ctx, selectQuery, args...).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if !bytes.Equal(current, expectedDigest) {
		return nil, common.ErrOutOfDate
	}

	digest := cryptox.Digest(blob)

	updateQuery := fmt.Sprintf(`
		UPDATE %s
		SET encrypted_blob = $1, encrypted_blob_digest = $2, modified_at = now()
		WHERE id = $3
	`, t.Table)
	if _, err := r.db.ExecContext(ctx, updateQuery, blob, digest, t.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return digest, nil
}
