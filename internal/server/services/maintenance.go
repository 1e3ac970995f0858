package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/clock"
	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/repomanager"
)

// PurgeResult counts the rows removed by one purge run.
type PurgeResult struct {
	AcceptKeys      int64
	OTPs            int64
	RefreshTokens   int64
	UnverifiedUsers int64
}

// MaintenanceService sweeps rows that can no longer be used.
type MaintenanceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	logger      logging.Logger

	unverifiedUserTTL time.Duration
}

// NewMaintenanceService sweeps with the given clock. Accounts left
// unverified for longer than unverifiedUserTTL are deleted.
func NewMaintenanceService(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock, unverifiedUserTTL time.Duration, logger logging.Logger) *MaintenanceService {
	return &MaintenanceService{
		db:                db,
		repomanager:       m,
		clock:             clk,
		logger:            logger.With("module", "maintenance"),
		unverifiedUserTTL: unverifiedUserTTL,
	}
}

// PurgeExpired deletes expired accept keys (their invitations go with them),
// one-time codes, refresh tokens and stale unverified accounts.
func (s *MaintenanceService) PurgeExpired(ctx context.Context) (*PurgeResult, error) {
	now := s.clock.Now()
	res := &PurgeResult{}

	var err error
	if res.AcceptKeys, err = s.repomanager.AcceptKeys(s.db).DeleteExpired(ctx, now); err != nil {
		return nil, fmt.Errorf("purge accept keys: %w", err)
	}
	if res.OTPs, err = s.repomanager.OTPs(s.db).DeleteExpired(ctx, now); err != nil {
		return nil, fmt.Errorf("purge otps: %w", err)
	}
	if res.RefreshTokens, err = s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, now); err != nil {
		return nil, fmt.Errorf("purge refresh tokens: %w", err)
	}
	if s.unverifiedUserTTL > 0 {
		if res.UnverifiedUsers, err = s.repomanager.Users(s.db).DeleteUnverifiedBefore(ctx, now.Add(-s.unverifiedUserTTL)); err != nil {
			return nil, fmt.Errorf("purge unverified users: %w", err)
		}
	}

	s.logger.Info(ctx, "purge finished",
		"accept_keys", res.AcceptKeys, "otps", res.OTPs, "refresh_tokens", res.RefreshTokens,
		"unverified_users", res.UnverifiedUsers)
	return res, nil
}
