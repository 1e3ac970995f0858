package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const identityKey ctxKey = "identity"

// publicMethods can be called without a session token. Capability-only
// methods are listed too: the budget access token is their authorization.
var publicMethods = map[string]bool{
	FullMethod("Ping"):             true,
	FullMethod("Register"):         true,
	FullMethod("ObtainNonce"):      true,
	FullMethod("SignIn"):           true,
	FullMethod("VerifyCreation"):   true,
	FullMethod("VerifyOTP"):        true,
	FullMethod("RefreshToken"):     true,
	FullMethod("GetUserPublicKey"): true,

	FullMethod("GetBudget"):              true,
	FullMethod("GetMultipleBudgets"):     true,
	FullMethod("EditBudget"):             true,
	FullMethod("LeaveBudget"):            true,
	FullMethod("CreateEntry"):            true,
	FullMethod("CreateEntryAndCategory"): true,
	FullMethod("EditEntry"):              true,
	FullMethod("DeleteEntry"):            true,
	FullMethod("CreateCategory"):         true,
	FullMethod("EditCategory"):           true,
	FullMethod("DeleteCategory"):         true,
}

func firstMetadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := firstMetadataValue(ctx, common.AccessTokenHeaderName)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	id, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	return handler(context.WithValue(ctx, identityKey, id), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "request served",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}

func identityFromContext(ctx context.Context) (auth.Identity, error) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	if !ok {
		return auth.Identity{}, status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

// capabilityToken returns the single token sent under key.
func capabilityToken(ctx context.Context, key string) (string, error) {
	raw := firstMetadataValue(ctx, key)
	if raw == "" {
		return "", status.Error(codes.Unauthenticated, "missing "+key)
	}
	return raw, nil
}

// capabilityTokens returns every token sent under key, for batch calls.
func capabilityTokens(ctx context.Context, key string) []string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}
	return md.Get(key)
}
