package grpc

import (
	"context"

	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/auth"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/services"
	"github.com/google/uuid"
)

type nopLogger struct{}

func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// ---- fakes ----

type fakeUsers struct {
	user    *models.User
	pair    *services.TokenPair
	nonce   int32
	key     *models.UserPublicKey
	digest  []byte
	err     error
	gotID   auth.Identity
	gotToks []string
	gotCode string
	gotTok  string
}

func (f *fakeUsers) Register(context.Context, services.NewUser) (*models.User, error) {
	return f.user, f.err
}
func (f *fakeUsers) ObtainNonce(context.Context, string) (int32, error) { return f.nonce, f.err }
func (f *fakeUsers) SignIn(context.Context, string, []byte, int32) error {
	return f.err
}
func (f *fakeUsers) VerifyCreation(_ context.Context, _ string, code string) error {
	f.gotCode = code
	return f.err
}
func (f *fakeUsers) Logout(_ context.Context, id auth.Identity, refreshToken string) error {
	f.gotID = id
	f.gotTok = refreshToken
	return f.err
}
func (f *fakeUsers) VerifyOTP(context.Context, string, string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeUsers) RefreshToken(context.Context, string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeUsers) GetUserPublicKey(context.Context, string) (*models.UserPublicKey, error) {
	return f.key, f.err
}
func (f *fakeUsers) RotatePublicKey(_ context.Context, id auth.Identity, _ []byte, _ uuid.UUID) (uuid.UUID, error) {
	f.gotID = id
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.key.ID, nil
}
func (f *fakeUsers) EditKeystore(_ context.Context, id auth.Identity, _, _ []byte) ([]byte, error) {
	f.gotID = id
	return f.digest, f.err
}
func (f *fakeUsers) EditPreferences(_ context.Context, id auth.Identity, _, _ []byte) ([]byte, error) {
	f.gotID = id
	return f.digest, f.err
}
func (f *fakeUsers) DeleteUser(_ context.Context, id auth.Identity, toks []string) error {
	f.gotID = id
	f.gotToks = toks
	return f.err
}

type fakeBudgets struct {
	created  *services.CreatedBudget
	budget   *models.Budget
	budgets  []*models.Budget
	entry    *models.Entry
	category *models.Category
	digest   []byte
	err      error

	gotToken  string
	gotTokens []string
	gotNew    services.NewBudget
}

func (f *fakeBudgets) CreateBudget(_ context.Context, _ auth.Identity, nb services.NewBudget) (*services.CreatedBudget, error) {
	f.gotNew = nb
	return f.created, f.err
}
func (f *fakeBudgets) GetBudget(_ context.Context, tok string) (*models.Budget, error) {
	f.gotToken = tok
	return f.budget, f.err
}
func (f *fakeBudgets) GetMultipleBudgets(_ context.Context, toks []string) ([]*models.Budget, error) {
	f.gotTokens = toks
	return f.budgets, f.err
}
func (f *fakeBudgets) EditBudget(_ context.Context, tok string, _, _ []byte) ([]byte, error) {
	f.gotToken = tok
	return f.digest, f.err
}
func (f *fakeBudgets) LeaveBudget(_ context.Context, tok string) error {
	f.gotToken = tok
	return f.err
}
func (f *fakeBudgets) CreateEntry(_ context.Context, tok string, _ []byte, _ uuid.NullUUID) (*models.Entry, error) {
	f.gotToken = tok
	return f.entry, f.err
}
func (f *fakeBudgets) CreateEntryAndCategory(_ context.Context, tok string, _, _ []byte) (*models.Entry, *models.Category, error) {
	f.gotToken = tok
	return f.entry, f.category, f.err
}
func (f *fakeBudgets) EditEntry(_ context.Context, tok string, _ uuid.UUID, _, _ []byte) ([]byte, error) {
	f.gotToken = tok
	return f.digest, f.err
}
func (f *fakeBudgets) DeleteEntry(_ context.Context, tok string, _ uuid.UUID) error {
	f.gotToken = tok
	return f.err
}
func (f *fakeBudgets) CreateCategory(_ context.Context, tok string, _ []byte) (*models.Category, error) {
	f.gotToken = tok
	return f.category, f.err
}
func (f *fakeBudgets) EditCategory(_ context.Context, tok string, _ uuid.UUID, _, _ []byte) ([]byte, error) {
	f.gotToken = tok
	return f.digest, f.err
}
func (f *fakeBudgets) DeleteCategory(_ context.Context, tok string, _ uuid.UUID) error {
	f.gotToken = tok
	return f.err
}

type fakeInvitations struct {
	id       uuid.UUID
	accepted *services.AcceptedInvitation
	list     []*models.Invitation
	err      error

	gotToken string
	gotInv   services.Invitation
}

func (f *fakeInvitations) InviteUser(_ context.Context, _ auth.Identity, tok string, inv services.Invitation) (uuid.UUID, error) {
	f.gotToken = tok
	f.gotInv = inv
	return f.id, f.err
}
func (f *fakeInvitations) RetractInvitation(_ context.Context, tok string) error {
	f.gotToken = tok
	return f.err
}
func (f *fakeInvitations) AcceptInvitation(_ context.Context, _ auth.Identity, tok string, _ []byte) (*services.AcceptedInvitation, error) {
	f.gotToken = tok
	return f.accepted, f.err
}
func (f *fakeInvitations) DeclineInvitation(_ context.Context, _ auth.Identity, tok string) error {
	f.gotToken = tok
	return f.err
}
func (f *fakeInvitations) ListPendingInvitations(context.Context, auth.Identity) ([]*models.Invitation, error) {
	return f.list, f.err
}

// ---- helpers ----

func newServer(u userService, b budgetService, i invitationService) *GRPCServer {
	return &GRPCServer{
		address:     "127.0.0.1:0",
		users:       u,
		budgets:     b,
		invitations: i,
		logger:      nopLogger{},
		jwtSecret:   []byte("k"),
	}
}
