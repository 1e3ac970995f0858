package invitations

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

func (r *PostgresRepository) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO budget_share_invites (
			id, recipient_user_email, sender_public_key, encryption_key_encrypted,
			budget_accept_private_key_encrypted, budget_info_encrypted, sender_info_encrypted,
			budget_accept_key_info_encrypted, budget_accept_key_id_encrypted,
			share_info_symmetric_key_encrypted, recipient_public_key_id_used_by_sender,
			recipient_public_key_id_used_by_server, budget_accept_key_id, budget_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.RecipientEmail, inv.SenderPublicKey, inv.EncryptionKeyEncrypted,
		inv.AcceptPrivateKeyEncrypted, inv.BudgetInfoEncrypted, inv.SenderInfoEncrypted,
		inv.AcceptKeyInfoEncrypted, inv.AcceptKeyIDEncrypted,
		inv.ShareInfoSymmetricKeyEncrypted, inv.RecipientPublicKeyIDUsedBySender,
		inv.RecipientPublicKeyIDUsedByServer, inv.AcceptKeyID, inv.BudgetID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSenderPublicKey(ctx context.Context, id uuid.UUID) ([]byte, error) {
	query := `SELECT sender_public_key FROM budget_share_invites WHERE id = $1`
	var key []byte
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return key, nil
}

func (r *PostgresRepository) DeleteForRecipient(ctx context.Context, id, acceptKeyID, budgetID uuid.UUID, email string) error {
	query := `
		DELETE FROM budget_share_invites
		WHERE id = $1 AND budget_accept_key_id = $2 AND budget_id = $3 AND recipient_user_email = $4
	`
	res, err := r.db.ExecContext(ctx, query, id, acceptKeyID, budgetID, email)
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

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	query := `
		DELETE FROM budget_share_invites
		WHERE id = $1
		RETURNING budget_accept_key_id, budget_id
	`
	var keyID, budgetID uuid.UUID
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&keyID, &budgetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, uuid.Nil, common.ErrorNotFound
		}
		return uuid.Nil, uuid.Nil, fmt.Errorf("db error: %w", err)
	}
	return keyID, budgetID, nil
}

func (r *PostgresRepository) ListForRecipient(ctx context.Context, email string, now time.Time) ([]*models.Invitation, error) {
	query := `
		SELECT i.id, i.recipient_user_email, i.sender_public_key, i.encryption_key_encrypted,
			i.budget_accept_private_key_encrypted, i.budget_info_encrypted, i.sender_info_encrypted,
			i.budget_accept_key_info_encrypted, i.budget_accept_key_id_encrypted,
			i.share_info_symmetric_key_encrypted, i.recipient_public_key_id_used_by_sender,
			i.recipient_public_key_id_used_by_server, i.budget_accept_key_id, i.budget_id, i.created_at
		FROM budget_share_invites i
		JOIN budget_accept_keys k
			ON k.key_id = i.budget_accept_key_id AND k.budget_id = i.budget_id
		WHERE i.recipient_user_email = $1 AND k.expiration > $2
		ORDER BY i.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, email, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Invitation
	for rows.Next() {
		inv := &models.Invitation{}
		if err := rows.Scan(
			&inv.ID, &inv.RecipientEmail, &inv.SenderPublicKey, &inv.EncryptionKeyEncrypted,
			&inv.AcceptPrivateKeyEncrypted, &inv.BudgetInfoEncrypted, &inv.SenderInfoEncrypted,
			&inv.AcceptKeyInfoEncrypted, &inv.AcceptKeyIDEncrypted,
			&inv.ShareInfoSymmetricKeyEncrypted, &inv.RecipientPublicKeyIDUsedBySender,
			&inv.RecipientPublicKeyIDUsedByServer, &inv.AcceptKeyID, &inv.BudgetID, &inv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
