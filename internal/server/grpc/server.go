// Package grpc exposes the budgetkeeper services over gRPC. Messages are
// plain Go structs carried by a JSON codec; capability tokens travel in
// request metadata.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/auth"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/services"
	"github.com/google/uuid"
	"google.golang.org/grpc"
)

type userService interface {
	Register(ctx context.Context, nu services.NewUser) (*models.User, error)
	ObtainNonce(ctx context.Context, email string) (int32, error)
	SignIn(ctx context.Context, email string, authString []byte, nonce int32) error
	VerifyCreation(ctx context.Context, email, code string) error
	VerifyOTP(ctx context.Context, email, code string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, user auth.Identity, refreshToken string) error
	GetUserPublicKey(ctx context.Context, email string) (*models.UserPublicKey, error)
	RotatePublicKey(ctx context.Context, user auth.Identity, publicKey []byte, expectedPreviousKeyID uuid.UUID) (uuid.UUID, error)
	EditKeystore(ctx context.Context, user auth.Identity, blob, expectedDigest []byte) ([]byte, error)
	EditPreferences(ctx context.Context, user auth.Identity, blob, expectedDigest []byte) ([]byte, error)
	DeleteUser(ctx context.Context, user auth.Identity, accessTokens []string) error
}

type budgetService interface {
	CreateBudget(ctx context.Context, user auth.Identity, nb services.NewBudget) (*services.CreatedBudget, error)
	GetBudget(ctx context.Context, accessToken string) (*models.Budget, error)
	GetMultipleBudgets(ctx context.Context, accessTokens []string) ([]*models.Budget, error)
	EditBudget(ctx context.Context, accessToken string, blob, expectedDigest []byte) ([]byte, error)
	LeaveBudget(ctx context.Context, accessToken string) error

	CreateEntry(ctx context.Context, accessToken string, blob []byte, categoryID uuid.NullUUID) (*models.Entry, error)
	CreateEntryAndCategory(ctx context.Context, accessToken string, entryBlob, categoryBlob []byte) (*models.Entry, *models.Category, error)
	EditEntry(ctx context.Context, accessToken string, entryID uuid.UUID, blob, expectedDigest []byte) ([]byte, error)
	DeleteEntry(ctx context.Context, accessToken string, entryID uuid.UUID) error
	CreateCategory(ctx context.Context, accessToken string, blob []byte) (*models.Category, error)
	EditCategory(ctx context.Context, accessToken string, categoryID uuid.UUID, blob, expectedDigest []byte) ([]byte, error)
	DeleteCategory(ctx context.Context, accessToken string, categoryID uuid.UUID) error
}

type invitationService interface {
	InviteUser(ctx context.Context, sender auth.Identity, accessToken string, inv services.Invitation) (uuid.UUID, error)
	RetractInvitation(ctx context.Context, senderToken string) error
	AcceptInvitation(ctx context.Context, recipient auth.Identity, acceptToken string, accessPublicKey []byte) (*services.AcceptedInvitation, error)
	DeclineInvitation(ctx context.Context, recipient auth.Identity, acceptToken string) error
	ListPendingInvitations(ctx context.Context, recipient auth.Identity) ([]*models.Invitation, error)
}

type GRPCServer struct {
	address     string
	users       userService
	budgets     budgetService
	invitations invitationService
	logger      logging.Logger
	jwtSecret   []byte
}

var _ BudgetKeeperServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us userService, bs budgetService, is invitationService, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		users:       us,
		budgets:     bs,
		invitations: is,
		jwtSecret:   []byte(secretKey),
	}, nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv.RegisterService(&ServiceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
