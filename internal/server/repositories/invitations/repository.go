// Package invitations stores budget share invitations. Every invitation is
// tied to exactly one accept key; deleting the key deletes the invitation.
package invitations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, inv *models.Invitation) error

	// GetSenderPublicKey returns the key that signs InviteSender tokens for id.
	GetSenderPublicKey(ctx context.Context, id uuid.UUID) ([]byte, error)

	// DeleteForRecipient deletes the invitation only if it is addressed to
	// email and bound to the given accept key. common.ErrorNotFound otherwise.
	DeleteForRecipient(ctx context.Context, id, acceptKeyID, budgetID uuid.UUID, email string) error

	// Delete deletes the invitation and returns the accept key it was bound to.
	Delete(ctx context.Context, id uuid.UUID) (acceptKeyID, budgetID uuid.UUID, err error)

	// ListForRecipient skips invitations whose accept key expired before now
	// but has not been swept yet.
	ListForRecipient(ctx context.Context, email string, now time.Time) ([]*models.Invitation, error)
}
