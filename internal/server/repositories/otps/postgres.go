package otps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, otp *models.OneTimeCode) error {
	query := `
		INSERT INTO user_otps (user_email, otp, expiration)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_email)
		DO UPDATE SET otp = EXCLUDED.otp, expiration = EXCLUDED.expiration
	`
	if _, err := r.db.ExecContext(ctx, query, otp.Email, otp.Code, otp.Expiration); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, email string) (*models.OneTimeCode, error) {
	query := `
		SELECT user_email, otp, expiration
		FROM user_otps
		WHERE user_email = $1
		FOR UPDATE
	`
	otp := &models.OneTimeCode{}
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&otp.Email, &otp.Code, &otp.Expiration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return otp, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_otps WHERE user_email = $1`, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_otps WHERE expiration < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
