package grpc

import (
	"context"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/services"
)

func (s *GRPCServer) Ping(ctx context.Context, req *Empty) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	s.logger.Info(ctx, "Registration request")

	user, err := s.users.Register(ctx, services.NewUser{
		Email:                req.Email,
		AuthString:           req.AuthString,
		PublicKey:            req.PublicKey,
		EncryptedKeystore:    req.EncryptedKeystore,
		EncryptedPreferences: req.EncryptedPreferences,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", user.ID)
	return &RegisterResponse{UserID: user.ID, PublicKeyID: user.PublicKeyID}, nil
}

func (s *GRPCServer) ObtainNonce(ctx context.Context, req *ObtainNonceRequest) (*ObtainNonceResponse, error) {
	nonce, err := s.users.ObtainNonce(ctx, req.Email)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &ObtainNonceResponse{Nonce: nonce}, nil
}

func (s *GRPCServer) SignIn(ctx context.Context, req *SignInRequest) (*Empty, error) {
	if err := s.users.SignIn(ctx, req.Email, req.AuthString, req.Nonce); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) VerifyCreation(ctx context.Context, req *VerifyCreationRequest) (*Empty, error) {
	if err := s.users.VerifyCreation(ctx, req.Email, req.Code); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) VerifyOTP(ctx context.Context, req *VerifyOTPRequest) (*TokenPairResponse, error) {
	tokens, err := s.users.VerifyOTP(ctx, req.Email, req.Code)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &TokenPairResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *RefreshTokenRequest) (*TokenPairResponse, error) {
	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &TokenPairResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

// Logout revokes the refresh token of the calling session.
func (s *GRPCServer) Logout(ctx context.Context, req *LogoutRequest) (*Empty, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.users.Logout(ctx, id, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) GetUserPublicKey(ctx context.Context, req *GetUserPublicKeyRequest) (*PublicKeyResponse, error) {
	key, err := s.users.GetUserPublicKey(ctx, req.Email)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &PublicKeyResponse{PublicKeyID: key.ID, PublicKey: key.Value}, nil
}

func (s *GRPCServer) RotatePublicKey(ctx context.Context, req *RotatePublicKeyRequest) (*PublicKeyResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	keyID, err := s.users.RotatePublicKey(ctx, id, req.PublicKey, req.ExpectedPreviousKeyID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &PublicKeyResponse{PublicKeyID: keyID}, nil
}

func (s *GRPCServer) EditKeystore(ctx context.Context, req *EditBlobRequest) (*EditBlobResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	digest, err := s.users.EditKeystore(ctx, id, req.EncryptedBlob, req.ExpectedDigest)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &EditBlobResponse{Digest: digest}, nil
}

func (s *GRPCServer) EditPreferences(ctx context.Context, req *EditBlobRequest) (*EditBlobResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	digest, err := s.users.EditPreferences(ctx, id, req.EncryptedBlob, req.ExpectedDigest)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &EditBlobResponse{Digest: digest}, nil
}

// DeleteUser takes the access token of every budget the user belongs to.
func (s *GRPCServer) DeleteUser(ctx context.Context, req *Empty) (*Empty, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.users.DeleteUser(ctx, id, capabilityTokens(ctx, common.BudgetAccessTokenHeaderName)); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Info(ctx, "User deleted", "user_id", id.UserID)
	return &Empty{}, nil
}
