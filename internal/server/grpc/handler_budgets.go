package grpc

import (
	"context"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/services"
)

func (s *GRPCServer) CreateBudget(ctx context.Context, req *CreateBudgetRequest) (*CreateBudgetResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	categories := make([]models.NewCategory, 0, len(req.Categories))
	for _, c := range req.Categories {
		categories = append(categories, models.NewCategory{TempID: c.TempID, EncryptedBlob: c.EncryptedBlob})
	}

	created, err := s.budgets.CreateBudget(ctx, id, services.NewBudget{
		EncryptedBlob:   req.EncryptedBlob,
		Categories:      categories,
		AccessPublicKey: req.AccessPublicKey,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &CreateBudgetResponse{
		BudgetID:    created.BudgetID,
		AccessKeyID: created.AccessKeyID,
		Categories:  make([]CreatedCategory, 0, len(created.Categories)),
		ModifiedAt:  created.ModifiedAt,
	}
	for _, c := range created.Categories {
		resp.Categories = append(resp.Categories, CreatedCategory{TempID: c.TempID, CategoryID: c.CategoryID})
	}
	return resp, nil
}

func (s *GRPCServer) GetBudget(ctx context.Context, req *Empty) (*BudgetResponse, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	b, err := s.budgets.GetBudget(ctx, tok)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &BudgetResponse{Budget: budgetFromModel(b)}, nil
}

// GetMultipleBudgets reads one budget per budget_access_token value.
func (s *GRPCServer) GetMultipleBudgets(ctx context.Context, req *Empty) (*BudgetsResponse, error) {
	list, err := s.budgets.GetMultipleBudgets(ctx, capabilityTokens(ctx, common.BudgetAccessTokenHeaderName))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &BudgetsResponse{Budgets: make([]*Budget, 0, len(list))}
	for _, b := range list {
		resp.Budgets = append(resp.Budgets, budgetFromModel(b))
	}
	return resp, nil
}

func (s *GRPCServer) EditBudget(ctx context.Context, req *EditBlobRequest) (*EditBlobResponse, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	digest, err := s.budgets.EditBudget(ctx, tok, req.EncryptedBlob, req.ExpectedDigest)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &EditBlobResponse{Digest: digest}, nil
}

func (s *GRPCServer) LeaveBudget(ctx context.Context, req *Empty) (*Empty, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	if err := s.budgets.LeaveBudget(ctx, tok); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) CreateEntry(ctx context.Context, req *CreateEntryRequest) (*EntryResponse, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	e, err := s.budgets.CreateEntry(ctx, tok, req.EncryptedBlob, req.CategoryID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &EntryResponse{Entry: entryFromModel(e)}, nil
}

func (s *GRPCServer) CreateEntryAndCategory(ctx context.Context, req *CreateEntryAndCategoryRequest) (*EntryAndCategoryResponse, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	e, c, err := s.budgets.CreateEntryAndCategory(ctx, tok, req.EntryEncryptedBlob, req.CategoryEncryptedBlob)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &EntryAndCategoryResponse{Entry: entryFromModel(e), Category: categoryFromModel(c)}, nil
}

func (s *GRPCServer) EditEntry(ctx context.Context, req *EditItemRequest) (*EditBlobResponse, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	digest, err := s.budgets.EditEntry(ctx, tok, req.ID, req.EncryptedBlob, req.ExpectedDigest)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &EditBlobResponse{Digest: digest}, nil
}

func (s *GRPCServer) DeleteEntry(ctx context.Context, req *DeleteItemRequest) (*Empty, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	if err := s.budgets.DeleteEntry(ctx, tok, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*CategoryResponse, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	c, err := s.budgets.CreateCategory(ctx, tok, req.EncryptedBlob)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &CategoryResponse{Category: categoryFromModel(c)}, nil
}

func (s *GRPCServer) EditCategory(ctx context.Context, req *EditItemRequest) (*EditBlobResponse, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	digest, err := s.budgets.EditCategory(ctx, tok, req.ID, req.EncryptedBlob, req.ExpectedDigest)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &EditBlobResponse{Digest: digest}, nil
}

func (s *GRPCServer) DeleteCategory(ctx context.Context, req *DeleteItemRequest) (*Empty, error) {
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}
	if err := s.budgets.DeleteCategory(ctx, tok, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}
