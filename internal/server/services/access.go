package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/budgetkeeper/internal/clock"
	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/accesskeys"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/budgetkeeper/internal/token"
)

// AccessService checks budget access tokens against the stored access keys.
// Keys are read on every call so a deleted key stops working immediately.
type AccessService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	verifier    token.Verifier
	clock       clock.Clock
}

func NewAccessService(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock) *AccessService {
	return &AccessService{
		db:          db,
		repomanager: m,
		verifier:    token.Ed25519Verifier{},
		clock:       clk,
	}
}

// AccessGrant is a verified access token together with the permission of
// the key that signed it.
type AccessGrant struct {
	token.AccessClaims
	ReadOnly bool
}

// VerifyRead accepts any valid token for an existing key.
func (s *AccessService) VerifyRead(ctx context.Context, raw string) (*AccessGrant, error) {
	return s.verify(ctx, raw, false)
}

// VerifyWrite additionally rejects read-only keys with common.ErrReadOnlyAccess.
func (s *AccessService) VerifyWrite(ctx context.Context, raw string) (*AccessGrant, error) {
	return s.verify(ctx, raw, true)
}

func (s *AccessService) verify(ctx context.Context, raw string, requireWrite bool) (*AccessGrant, error) {
	tok, err := token.Decode[token.AccessClaims](raw)
	if err != nil {
		return nil, err
	}

	key, err := s.repomanager.AccessKeys(s.db).Get(ctx, tok.Claims.KeyID, tok.Claims.BudgetID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error getting access key: %w", err)
	}

	claims, err := tok.Verify(s.verifier, key.PublicKey, s.clock.Now())
	if err != nil {
		return nil, foldSignatureError(err)
	}

	if requireWrite && key.ReadOnly {
		return nil, common.ErrReadOnlyAccess
	}

	return &AccessGrant{AccessClaims: claims, ReadOnly: key.ReadOnly}, nil
}

// VerifyMultiple verifies a batch of read tokens with a single key lookup.
// Any token that fails for any reason fails the whole batch with
// common.ErrorNotFound.
func (s *AccessService) VerifyMultiple(ctx context.Context, raws []string) ([]token.AccessClaims, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	toks := make([]*token.AccessToken, len(raws))
	refs := make([]accesskeys.KeyRef, len(raws))
	for i, raw := range raws {
		tok, err := token.Decode[token.AccessClaims](raw)
		if err != nil {
			return nil, common.ErrorNotFound
		}
		toks[i] = tok
		refs[i] = accesskeys.KeyRef{KeyID: tok.Claims.KeyID, BudgetID: tok.Claims.BudgetID}
	}

	keys, err := s.repomanager.AccessKeys(s.db).GetMultiple(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("error getting access keys: %w", err)
	}

	publicKeys := make(map[accesskeys.KeyRef][]byte, len(keys))
	for _, k := range keys {
		publicKeys[accesskeys.KeyRef{KeyID: k.KeyID, BudgetID: k.BudgetID}] = k.PublicKey
	}

	now := s.clock.Now()
	out := make([]token.AccessClaims, len(toks))
	for i, tok := range toks {
		pk, ok := publicKeys[refs[i]]
		if !ok {
			return nil, common.ErrorNotFound
		}
		claims, err := tok.Verify(s.verifier, pk, now)
		if err != nil {
			return nil, common.ErrorNotFound
		}
		out[i] = claims
	}
	return out, nil
}

// foldSignatureError hides whether a key exists from a caller that cannot
// sign for it.
func foldSignatureError(err error) error {
	if errors.Is(err, common.ErrBadSignature) {
		return common.ErrorNotFound
	}
	return err
}
