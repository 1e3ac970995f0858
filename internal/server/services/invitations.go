package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/clock"
	"github.com/dmitrijs2005/budgetkeeper/internal/codec"
	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/cryptox"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/auth"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/config"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/throttle"
	"github.com/dmitrijs2005/budgetkeeper/internal/token"
	"github.com/dmitrijs2005/budgetkeeper/internal/workerpool"
	"github.com/google/uuid"
)

// Invitation is the sender's half of a share invitation. Every field except
// the email, the ids, the expiration and ReadOnly is ciphertext produced by
// the sender.
type Invitation struct {
	RecipientEmail                   string
	SenderPublicKey                  []byte
	EncryptionKeyEncrypted           []byte
	BudgetInfoEncrypted              []byte
	SenderInfoEncrypted              []byte
	ShareInfoSymmetricKeyEncrypted   []byte
	RecipientPublicKeyIDUsedBySender uuid.UUID
	Expiration                       time.Time
	ReadOnly                         bool
}

// AcceptKeyInfo is encrypted for the recipient so it can tell what it is
// being offered before accepting.
type AcceptKeyInfo struct {
	ReadOnly   bool  `cbor:"read_only"`
	Expiration int64 `cbor:"expiration"`
}

// AcceptedInvitation is returned to a recipient who joined a budget.
type AcceptedInvitation struct {
	AccessKeyID uuid.UUID
	BudgetID    uuid.UUID
	ReadOnly    bool
	Budget      *models.Budget
}

// sealedAcceptKey is the accept key pair with its private half and metadata
// encrypted for the recipient.
type sealedAcceptKey struct {
	keyID               uuid.UUID
	keyIDEncrypted      []byte
	publicKey           []byte
	privateKeyEncrypted []byte
	keyInfoEncrypted    []byte
}

// InvitationService runs the invitation handshake: a budget member invites
// another user, who can accept or decline; the sender can retract.
type InvitationService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	access         *AccessService
	limiter        *throttle.Limiter
	pool           *workerpool.Pool
	verifier       token.Verifier
	clock          clock.Clock
	throttleLimit  int
	throttleWindow time.Duration
	logger         logging.Logger
}

func NewInvitationService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, limiter *throttle.Limiter,
	pool *workerpool.Pool, clk clock.Clock, cfg *config.Config, logger logging.Logger) *InvitationService {
	return &InvitationService{
		db:             db,
		repomanager:    m,
		access:         access,
		limiter:        limiter,
		pool:           pool,
		verifier:       token.Ed25519Verifier{},
		clock:          clk,
		throttleLimit:  cfg.ThrottleLimit,
		throttleWindow: cfg.ThrottleWindow,
		logger:         logger.With("module", "invitation_service"),
	}
}

// InviteUser creates an accept key for the recipient and stores it with the
// invitation. The returned id is what the sender's InviteSender tokens name.
func (s *InvitationService) InviteUser(ctx context.Context, sender auth.Identity, accessToken string, inv Invitation) (uuid.UUID, error) {
	if err := s.limiter.Enforce(ctx, throttle.Key("invite_user", sender.UserID.String()), s.throttleLimit, s.throttleWindow); err != nil {
		return uuid.Nil, err
	}

	grant, err := s.access.VerifyWrite(ctx, accessToken)
	if err != nil {
		return uuid.Nil, err
	}

	if inv.RecipientEmail == sender.Email {
		return uuid.Nil, common.ErrInvalidState
	}
	if !inv.Expiration.After(s.clock.Now()) {
		return uuid.Nil, common.ErrInvalidState
	}

	recipientKey, err := s.repomanager.Users(s.db).GetPublicKey(ctx, inv.RecipientEmail)
	if err != nil {
		return uuid.Nil, passDomainError(ctx, s.logger, "get recipient public key", err)
	}

	job := workerpool.Submit(ctx, s.pool, func() (*sealedAcceptKey, error) {
		return sealAcceptKey(recipientKey.Value, inv.ReadOnly, inv.Expiration)
	})
	sealed, err := workerpool.Await(ctx, job)
	if err != nil {
		if errors.Is(err, cryptox.ErrInvalidPublicKey) {
			return uuid.Nil, common.ErrMalformed
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return uuid.Nil, ctxErr
		}
		s.logger.Error(ctx, "seal accept key failed", "error", err)
		return uuid.Nil, common.ErrorInternal
	}

	record := &models.Invitation{
		ID:                               uuid.New(),
		RecipientEmail:                   inv.RecipientEmail,
		SenderPublicKey:                  inv.SenderPublicKey,
		EncryptionKeyEncrypted:           inv.EncryptionKeyEncrypted,
		AcceptPrivateKeyEncrypted:        sealed.privateKeyEncrypted,
		BudgetInfoEncrypted:              inv.BudgetInfoEncrypted,
		SenderInfoEncrypted:              inv.SenderInfoEncrypted,
		AcceptKeyInfoEncrypted:           sealed.keyInfoEncrypted,
		AcceptKeyIDEncrypted:             sealed.keyIDEncrypted,
		ShareInfoSymmetricKeyEncrypted:   inv.ShareInfoSymmetricKeyEncrypted,
		RecipientPublicKeyIDUsedBySender: inv.RecipientPublicKeyIDUsedBySender,
		RecipientPublicKeyIDUsedByServer: recipientKey.ID,
		AcceptKeyID:                      sealed.keyID,
		BudgetID:                         grant.BudgetID,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acceptKey := &models.AcceptKey{
			KeyID:      sealed.keyID,
			BudgetID:   grant.BudgetID,
			PublicKey:  sealed.publicKey,
			Expiration: inv.Expiration,
			ReadOnly:   inv.ReadOnly,
		}
		if err := s.repomanager.AcceptKeys(tx).Create(ctx, acceptKey); err != nil {
			return err
		}
		return s.repomanager.Invitations(tx).Create(ctx, record)
	})
	if err != nil {
		return uuid.Nil, passDomainError(ctx, s.logger, "store invitation", err)
	}

	return record.ID, nil
}

// sealAcceptKey generates the accept key pair and encrypts the private seed,
// the key id and the key info separately for the recipient.
func sealAcceptKey(recipientDER []byte, readOnly bool, expiration time.Time) (*sealedAcceptKey, error) {
	recipient, err := cryptox.ParseRSAPublicKey(recipientDER)
	if err != nil {
		return nil, err
	}

	pair, err := cryptox.GenerateSigningKeyPair()
	if err != nil {
		return nil, err
	}
	seed := pair.Seed()
	defer common.WipeByteArray(seed)

	keyID := uuid.New()

	info, err := codec.Marshal(AcceptKeyInfo{ReadOnly: readOnly, Expiration: expiration.Unix()})
	if err != nil {
		return nil, fmt.Errorf("encode accept key info: %w", err)
	}

	privateKeyEncrypted, err := cryptox.EncryptPKCS1v15(recipient, seed)
	if err != nil {
		return nil, err
	}
	keyIDEncrypted, err := cryptox.EncryptPKCS1v15(recipient, keyID[:])
	if err != nil {
		return nil, err
	}
	keyInfoEncrypted, err := cryptox.EncryptPKCS1v15(recipient, info)
	if err != nil {
		return nil, err
	}

	return &sealedAcceptKey{
		keyID:               keyID,
		keyIDEncrypted:      keyIDEncrypted,
		publicKey:           pair.Public,
		privateKeyEncrypted: privateKeyEncrypted,
		keyInfoEncrypted:    keyInfoEncrypted,
	}, nil
}

// RetractInvitation deletes an invitation on behalf of its sender.
func (s *InvitationService) RetractInvitation(ctx context.Context, senderToken string) error {
	tok, err := token.Decode[token.InviteSenderClaims](senderToken)
	if err != nil {
		return err
	}

	publicKey, err := s.repomanager.Invitations(s.db).GetSenderPublicKey(ctx, tok.Claims.InviteID)
	if err != nil {
		return passDomainError(ctx, s.logger, "get invitation sender key", err)
	}

	if _, err := tok.Verify(s.verifier, publicKey, s.clock.Now()); err != nil {
		return foldSignatureError(err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		keyID, budgetID, err := s.repomanager.Invitations(tx).Delete(ctx, tok.Claims.InviteID)
		if err != nil {
			return err
		}
		return s.repomanager.AcceptKeys(tx).Delete(ctx, keyID, budgetID)
	})
	return passDomainError(ctx, s.logger, "retract invitation", err)
}

// AcceptInvitation consumes the invitation and its accept key and grants
// the recipient a new access key with the offered permission.
func (s *InvitationService) AcceptInvitation(ctx context.Context, recipient auth.Identity, acceptToken string, accessPublicKey []byte) (*AcceptedInvitation, error) {
	if !cryptox.IsSigningPublicKey(accessPublicKey) {
		return nil, common.ErrMalformed
	}
	claims, acceptKey, err := s.verifyAcceptToken(ctx, acceptToken)
	if err != nil {
		return nil, err
	}

	out := &AcceptedInvitation{BudgetID: claims.BudgetID, ReadOnly: acceptKey.ReadOnly}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.consume(ctx, tx, recipient, claims); err != nil {
			return err
		}

		accessKey := &models.AccessKey{
			KeyID:     uuid.New(),
			BudgetID:  claims.BudgetID,
			PublicKey: accessPublicKey,
			ReadOnly:  acceptKey.ReadOnly,
		}
		if err := s.repomanager.AccessKeys(tx).Create(ctx, accessKey); err != nil {
			return err
		}
		out.AccessKeyID = accessKey.KeyID

		budget, err := readBudget(ctx, s.repomanager, tx, claims.BudgetID)
		if err != nil {
			return err
		}
		out.Budget = budget
		return nil
	})
	if err != nil {
		return nil, passDomainError(ctx, s.logger, "accept invitation", err)
	}
	return out, nil
}

// DeclineInvitation consumes the invitation and its accept key without
// granting access.
func (s *InvitationService) DeclineInvitation(ctx context.Context, recipient auth.Identity, acceptToken string) error {
	claims, _, err := s.verifyAcceptToken(ctx, acceptToken)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.consume(ctx, tx, recipient, claims)
	})
	return passDomainError(ctx, s.logger, "decline invitation", err)
}

// ListPendingInvitations returns the still acceptable invitations addressed
// to the user.
func (s *InvitationService) ListPendingInvitations(ctx context.Context, recipient auth.Identity) ([]*models.Invitation, error) {
	invs, err := s.repomanager.Invitations(s.db).ListForRecipient(ctx, recipient.Email, s.clock.Now())
	if err != nil {
		return nil, passDomainError(ctx, s.logger, "list invitations", err)
	}
	return invs, nil
}

// verifyAcceptToken checks the token against the stored accept key. A key
// that has expired but not yet been swept is treated as absent.
func (s *InvitationService) verifyAcceptToken(ctx context.Context, raw string) (token.AcceptClaims, *models.AcceptKey, error) {
	tok, err := token.Decode[token.AcceptClaims](raw)
	if err != nil {
		return token.AcceptClaims{}, nil, err
	}

	key, err := s.repomanager.AcceptKeys(s.db).Get(ctx, tok.Claims.KeyID, tok.Claims.BudgetID)
	if err != nil {
		return token.AcceptClaims{}, nil, passDomainError(ctx, s.logger, "get accept key", err)
	}

	now := s.clock.Now()
	if now.After(key.Expiration) {
		return token.AcceptClaims{}, nil, common.ErrorNotFound
	}

	claims, err := tok.Verify(s.verifier, key.PublicKey, now)
	if err != nil {
		return token.AcceptClaims{}, nil, foldSignatureError(err)
	}
	return claims, key, nil
}

// consume deletes the invitation, which must be addressed to recipient, and
// its accept key. Whoever deletes first wins; everyone else gets
// common.ErrorNotFound.
func (s *InvitationService) consume(ctx context.Context, tx dbx.DBTX, recipient auth.Identity, claims token.AcceptClaims) error {
	err := s.repomanager.Invitations(tx).DeleteForRecipient(ctx, claims.InvitationID, claims.KeyID, claims.BudgetID, recipient.Email)
	if err != nil {
		return err
	}
	return s.repomanager.AcceptKeys(tx).Delete(ctx, claims.KeyID, claims.BudgetID)
}
