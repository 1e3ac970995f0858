package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrMalformed, codes.InvalidArgument},
	{common.ErrInvalidState, codes.InvalidArgument},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrRefreshTokenExpired, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrorUnauthorized, codes.Unauthenticated},
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrorAlreadyExists, codes.AlreadyExists},
	{common.ErrOutOfDate, codes.FailedPrecondition},
	{common.ErrUnverified, codes.FailedPrecondition},
	{common.ErrReadOnlyAccess, codes.PermissionDenied},
	{common.ErrThrottled, codes.ResourceExhausted},
	{context.Canceled, codes.Canceled},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
}

// toStatus converts a service error into a gRPC status. Only sentinel
// messages reach the client; anything else is logged and reported as
// internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return status.Error(ec.code, ec.err.Error())
		}
	}
	s.logger.Error(ctx, "unhandled error", "error", err)
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}
