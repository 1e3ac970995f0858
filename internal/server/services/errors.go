package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
)

// domainErrors are returned to callers unchanged.
var domainErrors = []error{
	common.ErrorNotFound,
	common.ErrorAlreadyExists,
	common.ErrorUnauthorized,
	common.ErrInvalidState,
	common.ErrThrottled,
	common.ErrMalformed,
	common.ErrReadOnlyAccess,
	common.ErrOutOfDate,
	common.ErrTokenExpired,
	common.ErrRefreshTokenExpired,
	common.ErrUnverified,
	common.ErrorInternal,
}

func passDomainError(ctx context.Context, logger logging.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	logger.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}
