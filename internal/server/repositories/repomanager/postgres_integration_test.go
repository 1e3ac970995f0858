package repomanager

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/cryptox"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/blobs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway PostgreSQL, applies the embedded
// migrations and returns a connection pool.
func setupPostgres(t *testing.T) (*sql.DB, RepositoryManager) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("budgetkeeper_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := dbx.Open(ctx, dsn, 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := NewPostgresRepositoryManager()
	require.NoError(t, m.RunMigrations(ctx, db))
	return db, m
}

func seedBudget(t *testing.T, db *sql.DB, m RepositoryManager, blob []byte) *models.Budget {
	t.Helper()
	b := &models.Budget{ID: uuid.New(), EncryptedBlob: blob, EncryptedBlobDigest: cryptox.Digest(blob)}
	require.NoError(t, m.Budgets(db).Create(context.Background(), b))
	return b
}

func TestPostgres_MigrationsRoundTrip(t *testing.T) {
	db, m := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, m.RollbackMigration(ctx, db))
	require.NoError(t, m.RollbackMigration(ctx, db))
	require.NoError(t, m.RunMigrations(ctx, db))

	seedBudget(t, db, m, []byte("after re-apply"))
}

func TestPostgres_BlobGuard(t *testing.T) {
	db, m := setupPostgres(t)
	ctx := context.Background()
	b := seedBudget(t, db, m, []byte("v1"))
	target := blobs.Target{Table: blobs.Budgets, ID: b.ID}

	var d2 []byte
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		d2, err = m.Blobs(tx).Update(ctx, target, []byte("v2"), b.EncryptedBlobDigest)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, cryptox.Digest([]byte("v2")), d2)

	// the first digest is now stale
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := m.Blobs(tx).Update(ctx, target, []byte("v3"), b.EncryptedBlobDigest)
		return err
	})
	require.ErrorIs(t, err, common.ErrOutOfDate)

	got, err := m.Budgets(db).Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.EncryptedBlob)
	assert.Equal(t, d2, got.EncryptedBlobDigest)

	_, err = m.Blobs(db).Update(ctx, blobs.Target{Table: blobs.Budgets, ID: uuid.New()}, []byte("x"), d2)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_BlobGuard_ConcurrentWritersOneWins(t *testing.T) {
	db, m := setupPostgres(t)
	ctx := context.Background()
	b := seedBudget(t, db, m, []byte("base"))
	target := blobs.Target{Table: blobs.Budgets, ID: b.ID}

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
				_, err := m.Blobs(tx).Update(ctx, target, []byte{byte(i)}, b.EncryptedBlobDigest)
				return err
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, common.ErrOutOfDate)
	}
	assert.Equal(t, 1, won)
}

func TestPostgres_BlobGuard_ScopedToBudget(t *testing.T) {
	db, m := setupPostgres(t)
	ctx := context.Background()
	own := seedBudget(t, db, m, []byte("own"))
	other := seedBudget(t, db, m, []byte("other"))

	c := &models.Category{ID: uuid.New(), BudgetID: own.ID, EncryptedBlob: []byte("c"), EncryptedBlobDigest: cryptox.Digest([]byte("c"))}
	require.NoError(t, m.Categories(db).Create(ctx, c))

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := m.Blobs(tx).Update(ctx, blobs.Target{Table: blobs.Categories, ID: c.ID, BudgetID: other.ID},
			[]byte("c2"), c.EncryptedBlobDigest)
		return err
	})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_NonceRotation(t *testing.T) {
	db, m := setupPostgres(t)
	ctx := context.Background()

	u := &models.User{
		ID: uuid.New(), Email: "ann@example.com", PublicKeyID: uuid.New(),
		PublicKey: []byte("pk"), AuthStringHash: "hash",
	}
	_, err := m.Users(db).Create(ctx, u)
	require.NoError(t, err)
	require.NoError(t, m.SigninNonces(db).Create(ctx, u.Email, 11))

	_, err = m.Users(db).Create(ctx, &models.User{
		ID: uuid.New(), Email: u.Email, PublicKeyID: uuid.New(), PublicKey: []byte("pk"), AuthStringHash: "hash",
	})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	var previous int32
	err = dbx.WithTxRetry(ctx, db, nil, dbx.DefaultTxAttempts, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if previous, err = m.SigninNonces(tx).GetForUpdate(ctx, u.Email); err != nil {
			return err
		}
		return m.SigninNonces(tx).Set(ctx, u.Email, 12)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(11), previous)

	current, err := m.SigninNonces(db).Get(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, int32(12), current)

	// user removal cascades to the nonce row
	require.NoError(t, m.Users(db).Delete(ctx, u.ID))
	_, err = m.SigninNonces(db).Get(ctx, u.Email)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_DeleteIfUnreferenced(t *testing.T) {
	db, m := setupPostgres(t)
	ctx := context.Background()
	b := seedBudget(t, db, m, []byte("b"))

	key := &models.AccessKey{KeyID: uuid.New(), BudgetID: b.ID, PublicKey: []byte("k")}
	require.NoError(t, m.AccessKeys(db).Create(ctx, key))

	deleted, err := m.Budgets(db).DeleteIfUnreferenced(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, m.AccessKeys(db).Delete(ctx, key.KeyID, b.ID))
	deleted, err = m.Budgets(db).DeleteIfUnreferenced(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}
