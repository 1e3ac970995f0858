package services

import (
	"context"

	"github.com/dmitrijs2005/budgetkeeper/internal/cryptox"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/blobs"
	"github.com/google/uuid"
)

// CreateEntry adds an entry to the budget named by the token. A categoryID
// outside that budget yields common.ErrorNotFound.
func (s *BudgetService) CreateEntry(ctx context.Context, accessToken string, blob []byte, categoryID uuid.NullUUID) (*models.Entry, error) {
	grant, err := s.access.VerifyWrite(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	entry := &models.Entry{
		ID:                  uuid.New(),
		BudgetID:            grant.BudgetID,
		CategoryID:          categoryID,
		EncryptedBlob:       blob,
		EncryptedBlobDigest: cryptox.Digest(blob),
	}
	if err := s.repomanager.Entries(s.db).Create(ctx, entry); err != nil {
		return nil, passDomainError(ctx, s.logger, "create entry", err)
	}
	return entry, nil
}

// CreateEntryAndCategory adds a category and an entry filed under it in one
// transaction.
func (s *BudgetService) CreateEntryAndCategory(ctx context.Context, accessToken string, entryBlob, categoryBlob []byte) (*models.Entry, *models.Category, error) {
	grant, err := s.access.VerifyWrite(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}

	category := &models.Category{
		ID:                  uuid.New(),
		BudgetID:            grant.BudgetID,
		EncryptedBlob:       categoryBlob,
		EncryptedBlobDigest: cryptox.Digest(categoryBlob),
	}
	entry := &models.Entry{
		ID:                  uuid.New(),
		BudgetID:            grant.BudgetID,
		CategoryID:          uuid.NullUUID{UUID: category.ID, Valid: true},
		EncryptedBlob:       entryBlob,
		EncryptedBlobDigest: cryptox.Digest(entryBlob),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Categories(tx).Create(ctx, category); err != nil {
			return err
		}
		return s.repomanager.Entries(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, nil, passDomainError(ctx, s.logger, "create entry and category", err)
	}
	return entry, category, nil
}

func (s *BudgetService) EditEntry(ctx context.Context, accessToken string, entryID uuid.UUID, blob, expectedDigest []byte) ([]byte, error) {
	grant, err := s.access.VerifyWrite(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	target := blobs.Target{Table: blobs.Entries, ID: entryID, BudgetID: grant.BudgetID}
	return s.updateBlob(ctx, target, blob, expectedDigest)
}

func (s *BudgetService) DeleteEntry(ctx context.Context, accessToken string, entryID uuid.UUID) error {
	grant, err := s.access.VerifyWrite(ctx, accessToken)
	if err != nil {
		return err
	}
	err = s.repomanager.Entries(s.db).Delete(ctx, entryID, grant.BudgetID)
	return passDomainError(ctx, s.logger, "delete entry", err)
}

func (s *BudgetService) CreateCategory(ctx context.Context, accessToken string, blob []byte) (*models.Category, error) {
	grant, err := s.access.VerifyWrite(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		ID:                  uuid.New(),
		BudgetID:            grant.BudgetID,
		EncryptedBlob:       blob,
		EncryptedBlobDigest: cryptox.Digest(blob),
	}
	if err := s.repomanager.Categories(s.db).Create(ctx, category); err != nil {
		return nil, passDomainError(ctx, s.logger, "create category", err)
	}
	return category, nil
}

func (s *BudgetService) EditCategory(ctx context.Context, accessToken string, categoryID uuid.UUID, blob, expectedDigest []byte) ([]byte, error) {
	grant, err := s.access.VerifyWrite(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	target := blobs.Target{Table: blobs.Categories, ID: categoryID, BudgetID: grant.BudgetID}
	return s.updateBlob(ctx, target, blob, expectedDigest)
}

// DeleteCategory removes the category. Entries filed under it become
// uncategorized.
func (s *BudgetService) DeleteCategory(ctx context.Context, accessToken string, categoryID uuid.UUID) error {
	grant, err := s.access.VerifyWrite(ctx, accessToken)
	if err != nil {
		return err
	}
	err = s.repomanager.Categories(s.db).Delete(ctx, categoryID, grant.BudgetID)
	return passDomainError(ctx, s.logger, "delete category", err)
}
