package accesskeys

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

func (r *PostgresRepository) Create(ctx context.Context, key *models.AccessKey) error {
	query := `
		INSERT INTO budget_access_keys (key_id, budget_id, public_key, read_only)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, key.KeyID, key.BudgetID, key.PublicKey, key.ReadOnly); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, keyID, budgetID uuid.UUID) (*models.AccessKey, error) {
	query := `
		SELECT key_id, budget_id, public_key, read_only
		FROM budget_access_keys
		WHERE key_id = $1 AND budget_id = $2
	`
	k := &models.AccessKey{}
	if err := r.db.QueryRowContext(ctx, query, keyID, budgetID).Scan(&k.KeyID, &k.BudgetID, &k.PublicKey, &k.ReadOnly); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return k, nil
}

func (r *PostgresRepository) GetMultiple(ctx context.Context, refs []KeyRef) ([]*models.AccessKey, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	keyIDs := make([]string, len(refs))
	budgetIDs := make([]string, len(refs))
	for i, ref := range refs {
		keyIDs[i] = ref.KeyID.String()
		budgetIDs[i] = ref.BudgetID.String()
	}

	query := `
		SELECT k.key_id, k.budget_id, k.public_key, k.read_only
		FROM budget_access_keys k
		JOIN unnest($1::uuid[], $2::uuid[]) AS ref(key_id, budget_id)
		  ON k.key_id = ref.key_id AND k.budget_id = ref.budget_id
	`
	rows, err := r.db.QueryContext(ctx, query, keyIDs, budgetIDs)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AccessKey
	for rows.Next() {
		k := &models.AccessKey{}
		if err := rows.Scan(&k.KeyID, &k.BudgetID, &k.PublicKey, &k.ReadOnly); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, keyID, budgetID uuid.UUID) error {
	query := `
		DELETE FROM budget_access_keys
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

func (r *PostgresRepository) CountForBudget(ctx context.Context, budgetID uuid.UUID) (int, error) {
	query := `SELECT count(*) FROM budget_access_keys WHERE budget_id = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, query, budgetID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
