package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/cryptox"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/auth"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/config"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/throttle"
	"github.com/google/uuid"
)

// NewBudget is the client's request to create a budget. AccessPublicKey
// becomes the creator's access key.
type NewBudget struct {
	EncryptedBlob   []byte
	Categories      []models.NewCategory
	AccessPublicKey []byte
}

// CreatedBudget reports the ids generated for a new budget.
type CreatedBudget struct {
	BudgetID    uuid.UUID
	AccessKeyID uuid.UUID
	Categories  []models.CreatedCategory
	ModifiedAt  time.Time
}

// BudgetService implements budget, category and entry operations. Every call
// is authorized by a budget access token.
type BudgetService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	access         *AccessService
	limiter        *throttle.Limiter
	throttleLimit  int
	throttleWindow time.Duration
	logger         logging.Logger
}

func NewBudgetService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService,
	limiter *throttle.Limiter, cfg *config.Config, logger logging.Logger) *BudgetService {
	return &BudgetService{
		db:             db,
		repomanager:    m,
		access:         access,
		limiter:        limiter,
		throttleLimit:  cfg.ThrottleLimit,
		throttleWindow: cfg.ThrottleWindow,
		logger:         logger.With("module", "budget_service"),
	}
}

// CreateBudget stores the budget, its initial categories and the creator's
// read-write access key in one transaction.
func (s *BudgetService) CreateBudget(ctx context.Context, user auth.Identity, nb NewBudget) (*CreatedBudget, error) {
	if !cryptox.IsSigningPublicKey(nb.AccessPublicKey) {
		return nil, common.ErrMalformed
	}
	if err := s.limiter.Enforce(ctx, throttle.Key("create_budget", user.UserID.String()), s.throttleLimit, s.throttleWindow); err != nil {
		return nil, err
	}

	// temp ids are the only way to tell the encrypted categories apart
	seen := make(map[int32]struct{}, len(nb.Categories))
	for _, c := range nb.Categories {
		if _, dup := seen[c.TempID]; dup {
			return nil, common.ErrInvalidState
		}
		seen[c.TempID] = struct{}{}
	}

	var out *CreatedBudget
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		budget := &models.Budget{
			ID:                  uuid.New(),
			EncryptedBlob:       nb.EncryptedBlob,
			EncryptedBlobDigest: cryptox.Digest(nb.EncryptedBlob),
		}
		if err := s.repomanager.Budgets(tx).Create(ctx, budget); err != nil {
			return err
		}

		created := make([]models.CreatedCategory, 0, len(nb.Categories))
		categoriesRepo := s.repomanager.Categories(tx)
		for _, c := range nb.Categories {
			category := &models.Category{
				ID:                  uuid.New(),
				BudgetID:            budget.ID,
				EncryptedBlob:       c.EncryptedBlob,
				EncryptedBlobDigest: cryptox.Digest(c.EncryptedBlob),
			}
			if err := categoriesRepo.Create(ctx, category); err != nil {
				return err
			}
			created = append(created, models.CreatedCategory{TempID: c.TempID, CategoryID: category.ID})
		}

		key := &models.AccessKey{
			KeyID:     uuid.New(),
			BudgetID:  budget.ID,
			PublicKey: nb.AccessPublicKey,
			ReadOnly:  false,
		}
		if err := s.repomanager.AccessKeys(tx).Create(ctx, key); err != nil {
			return err
		}

		out = &CreatedBudget{
			BudgetID:    budget.ID,
			AccessKeyID: key.KeyID,
			Categories:  created,
			ModifiedAt:  budget.ModifiedAt,
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "create budget failed", "user_id", user.UserID, "error", err)
		return nil, common.ErrorInternal
	}

	return out, nil
}

// GetBudget returns the budget named by the token with all its categories
// and entries.
func (s *BudgetService) GetBudget(ctx context.Context, accessToken string) (*models.Budget, error) {
	grant, err := s.access.VerifyRead(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.loadBudget(ctx, grant.BudgetID)
}

// GetMultipleBudgets loads every budget named by the tokens. One bad token
// fails the call with common.ErrorNotFound.
func (s *BudgetService) GetMultipleBudgets(ctx context.Context, accessTokens []string) ([]*models.Budget, error) {
	claims, err := s.access.VerifyMultiple(ctx, accessTokens)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Budget, 0, len(claims))
	for _, c := range claims {
		b, err := s.loadBudget(ctx, c.BudgetID)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// EditBudget replaces the budget blob if expectedDigest is current and
// returns the digest of the new blob.
func (s *BudgetService) EditBudget(ctx context.Context, accessToken string, blob, expectedDigest []byte) ([]byte, error) {
	grant, err := s.access.VerifyWrite(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.updateBlob(ctx, blobs.Target{Table: blobs.Budgets, ID: grant.BudgetID}, blob, expectedDigest)
}

// LeaveBudget deletes the caller's own access key. The budget itself is
// deleted once no key refers to it.
func (s *BudgetService) LeaveBudget(ctx context.Context, accessToken string) error {
	grant, err := s.access.VerifyRead(ctx, accessToken)
	if err != nil {
		return err
	}

	err = dbx.WithTxRetry(ctx, s.db, nil, dbx.DefaultTxAttempts, func(ctx context.Context, tx dbx.DBTX) error {
		return removeMember(ctx, s.repomanager, tx, grant.KeyID, grant.BudgetID)
	})
	return passDomainError(ctx, s.logger, "leave budget", err)
}

// removeMember deletes one access key and, when it was the last one, the
// budget. The budget row is locked first, so concurrent removals from the
// same budget run one after another and the last of them sees no keys left.
func removeMember(ctx context.Context, m repomanager.RepositoryManager, tx dbx.DBTX, keyID, budgetID uuid.UUID) error {
	if err := m.Budgets(tx).LockForUpdate(ctx, budgetID); err != nil {
		return err
	}
	if err := m.AccessKeys(tx).Delete(ctx, keyID, budgetID); err != nil {
		return err
	}
	_, err := m.Budgets(tx).DeleteIfUnreferenced(ctx, budgetID)
	return err
}

func (s *BudgetService) loadBudget(ctx context.Context, budgetID uuid.UUID) (*models.Budget, error) {
	var budget *models.Budget
	err := dbx.WithTx(ctx, s.db, dbx.ReadOnly, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		budget, err = readBudget(ctx, s.repomanager, tx, budgetID)
		return err
	})
	if err != nil {
		return nil, passDomainError(ctx, s.logger, "load budget", err)
	}
	return budget, nil
}

// readBudget assembles the budget state visible to a new or existing member.
func readBudget(ctx context.Context, m repomanager.RepositoryManager, db dbx.DBTX, budgetID uuid.UUID) (*models.Budget, error) {
	budget, err := m.Budgets(db).Get(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.Categories, err = m.Categories(db).ListByBudget(ctx, budgetID); err != nil {
		return nil, err
	}
	if budget.Entries, err = m.Entries(db).ListByBudget(ctx, budgetID); err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *BudgetService) updateBlob(ctx context.Context, target blobs.Target, blob, expectedDigest []byte) ([]byte, error) {
	var digest []byte
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		digest, err = s.repomanager.Blobs(tx).Update(ctx, target, blob, expectedDigest)
		return err
	})
	if err != nil {
		return nil, passDomainError(ctx, s.logger, fmt.Sprintf("update %s", target.Table), err)
	}
	return digest, nil
}
