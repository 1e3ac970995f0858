package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/clock"
	"github.com/dmitrijs2005/budgetkeeper/internal/cryptox"
	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/auth"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/config"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/throttle"
	"github.com/dmitrijs2005/budgetkeeper/internal/token"
	"github.com/dmitrijs2005/budgetkeeper/internal/workerpool"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *captureSender) SendOTP(_ context.Context, email, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codes == nil {
		c.codes = map[string]string{}
	}
	c.codes[email] = code
	return nil
}

func (c *captureSender) last(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[email]
}

type harness struct {
	store       *memStore
	clock       *clock.FakeClock
	cfg         *config.Config
	sender      *captureSender
	access      *AccessService
	users       *UserService
	budgets     *BudgetService
	invitations *InvitationService
	maintenance *MaintenanceService
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := newTxDB(t)
	store := newMemStore()
	clk := clock.Fake(time.Now())
	store.now = clk.Now

	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
		OTPValidityDuration:          5 * time.Minute,
		OTPMaxAttempts:               3,
		UnverifiedUserTTL:            7 * 24 * time.Hour,
		ThrottleLimit:                100,
		ThrottleWindow:               time.Minute,
	}

	logger := discardLogger()
	limiter := throttle.NewLimiter(throttle.NewMemoryCounter(clk))
	pool := workerpool.New(2)
	t.Cleanup(pool.Wait)

	sender := &captureSender{}
	access := NewAccessService(db, store, clk)

	return &harness{
		store:       store,
		clock:       clk,
		cfg:         cfg,
		sender:      sender,
		access:      access,
		users:       NewUserService(db, store, cfg, access, limiter, sender, clk, logger),
		budgets:     NewBudgetService(db, store, access, limiter, cfg, logger),
		invitations: NewInvitationService(db, store, access, limiter, pool, clk, cfg, logger),
		maintenance: NewMaintenanceService(db, store, clk, 7*24*time.Hour, logger),
	}
}

var (
	rsaOnce sync.Once
	rsaKeys []*rsa.PrivateKey
)

// testRSAKey returns one of a few shared 2048-bit keys; generating them is slow.
func testRSAKey(t *testing.T, i int) (*rsa.PrivateKey, []byte) {
	t.Helper()
	rsaOnce.Do(func() {
		for range 3 {
			k, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			rsaKeys = append(rsaKeys, k)
		}
	})
	k := rsaKeys[i]
	der, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	require.NoError(t, err)
	return k, der
}

type member struct {
	identity auth.Identity
	rsa      *rsa.PrivateKey
	password []byte
}

func (h *harness) register(t *testing.T, email string, keyIdx int) *member {
	t.Helper()
	priv, der := testRSAKey(t, keyIdx)
	password := []byte("auth-" + email)
	u, err := h.users.Register(context.Background(), NewUser{
		Email:                email,
		AuthString:           password,
		PublicKey:            der,
		EncryptedKeystore:    []byte("keystore-" + email),
		EncryptedPreferences: []byte("prefs-" + email),
	})
	require.NoError(t, err)
	require.NoError(t, h.users.VerifyCreation(context.Background(), email, h.sender.last(email)))
	return &member{identity: auth.Identity{UserID: u.ID, Email: u.Email}, rsa: priv, password: password}
}

// budgetKey is the client side of an access key.
type budgetKey struct {
	pair     *cryptox.SigningKeyPair
	keyID    uuid.UUID
	budgetID uuid.UUID
}

func newSigningPair(t *testing.T) *cryptox.SigningKeyPair {
	t.Helper()
	pair, err := cryptox.GenerateSigningKeyPair()
	require.NoError(t, err)
	return pair
}

func signWith[C token.Claims](t *testing.T, pair *cryptox.SigningKeyPair, claims C) string {
	t.Helper()
	signer, err := token.NewEd25519SignerFromSeed(pair.Seed())
	require.NoError(t, err)
	raw, err := token.Encode(claims, signer)
	require.NoError(t, err)
	return raw
}

func (h *harness) accessToken(t *testing.T, k *budgetKey) string {
	t.Helper()
	return signWith(t, k.pair, token.AccessClaims{
		KeyID:      k.keyID,
		BudgetID:   k.budgetID,
		Expiration: h.clock.Now().Add(time.Minute).Unix(),
	})
}

func (h *harness) createBudget(t *testing.T, owner *member, cats ...models.NewCategory) (*budgetKey, *CreatedBudget) {
	t.Helper()
	pair := newSigningPair(t)
	created, err := h.budgets.CreateBudget(context.Background(), owner.identity, NewBudget{
		EncryptedBlob:   []byte("budget"),
		Categories:      cats,
		AccessPublicKey: pair.Public,
	})
	require.NoError(t, err)
	return &budgetKey{pair: pair, keyID: created.AccessKeyID, budgetID: created.BudgetID}, created
}
