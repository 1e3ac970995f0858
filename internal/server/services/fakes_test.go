package services

import (
	"bytes"
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/cryptox"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/acceptkeys"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/accesskeys"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/budgets"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/categories"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/invitations"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/otps"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/signinnonces"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/users"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// newTxDB returns an in-memory sqlite handle. The fake repositories ignore
// it; it only backs the Begin/Commit calls made by dbx.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type blobRow struct {
	blob   []byte
	digest []byte
}

type keyRef struct {
	keyID    uuid.UUID
	budgetID uuid.UUID
}

// memStore keeps every table in maps and mirrors the cascade rules of the
// postgres schema. Transactions are not isolated.
type memStore struct {
	mu sync.Mutex

	users         map[uuid.UUID]*models.User
	refreshTokens map[string]*models.RefreshToken
	nonces        map[string]int32
	otps          map[string]*models.OneTimeCode
	userBlobs     map[blobs.Table]map[uuid.UUID]*blobRow

	budgets     map[uuid.UUID]*models.Budget
	categories  map[uuid.UUID]*models.Category
	entries     map[uuid.UUID]*models.Entry
	accessKeys  map[keyRef]*models.AccessKey
	acceptKeys  map[keyRef]*models.AcceptKey
	invitations map[uuid.UUID]*models.Invitation

	now func() time.Time

	// injected failures
	failAccessKeyGet error
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[uuid.UUID]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
		nonces:        map[string]int32{},
		otps:          map[string]*models.OneTimeCode{},
		userBlobs: map[blobs.Table]map[uuid.UUID]*blobRow{
			blobs.UserKeystores:   {},
			blobs.UserPreferences: {},
		},
		budgets:     map[uuid.UUID]*models.Budget{},
		categories:  map[uuid.UUID]*models.Category{},
		entries:     map[uuid.UUID]*models.Entry{},
		accessKeys:  map[keyRef]*models.AccessKey{},
		acceptKeys:  map[keyRef]*models.AcceptKey{},
		invitations: map[uuid.UUID]*models.Invitation{},
		now:         time.Now,
	}
}

func (m *memStore) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *memStore) RollbackMigration(context.Context, *sql.DB) error { return nil }

func (m *memStore) Users(dbx.DBTX) users.Repository                 { return memUsers{m} }
func (m *memStore) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return memRefreshTokens{m} }
func (m *memStore) SigninNonces(dbx.DBTX) signinnonces.Repository   { return memNonces{m} }
func (m *memStore) OTPs(dbx.DBTX) otps.Repository                   { return memOTPs{m} }
func (m *memStore) Budgets(dbx.DBTX) budgets.Repository             { return memBudgets{m} }
func (m *memStore) Categories(dbx.DBTX) categories.Repository       { return memCategories{m} }
func (m *memStore) Entries(dbx.DBTX) entries.Repository             { return memEntries{m} }
func (m *memStore) Blobs(dbx.DBTX) blobs.Repository                 { return memBlobs{m} }
func (m *memStore) AccessKeys(dbx.DBTX) accesskeys.Repository       { return memAccessKeys{m} }
func (m *memStore) AcceptKeys(dbx.DBTX) acceptkeys.Repository       { return memAcceptKeys{m} }
func (m *memStore) Invitations(dbx.DBTX) invitations.Repository     { return memInvitations{m} }

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.CreatedAt = r.s.now()
	r.s.users[u.ID] = &cp
	out := cp
	return &out, nil
}

func (r memUsers) byEmail(email string) *models.User {
	for _, u := range r.s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.byEmail(email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetPublicKey(_ context.Context, email string) (*models.UserPublicKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.byEmail(email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	return &models.UserPublicKey{ID: u.PublicKeyID, Value: u.PublicKey}, nil
}

func (r memUsers) GetPublicKeyIDForUpdate(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return uuid.Nil, common.ErrorNotFound
	}
	return u.PublicKeyID, nil
}

func (r memUsers) SetPublicKey(_ context.Context, id uuid.UUID, key *models.UserPublicKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PublicKeyID = key.ID
	u.PublicKey = key.Value
	return nil
}

func (r memUsers) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	delete(r.s.nonces, u.Email)
	delete(r.s.otps, u.Email)
	for _, tbl := range r.s.userBlobs {
		delete(tbl, id)
	}
	for k, rt := range r.s.refreshTokens {
		if rt.UserID == id {
			delete(r.s.refreshTokens, k)
		}
	}
	return nil
}

func (r memUsers) MarkVerified(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsVerified = true
	return nil
}

func (r memUsers) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	var stale []uuid.UUID
	for id, u := range r.s.users {
		if !u.IsVerified && u.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.s.mu.Unlock()
	for _, id := range stale {
		if err := r.Delete(ctx, id); err != nil {
			return 0, err
		}
	}
	return int64(len(stale)), nil
}

// --- refresh tokens ---

type memRefreshTokens struct{ s *memStore }

func (r memRefreshTokens) Create(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.refreshTokens[token] = &models.RefreshToken{
		UserID:    userID,
		TokenHash: cryptox.Digest([]byte(token)),
		ExpiresAt: expiresAt,
	}
	return nil
}

func (r memRefreshTokens) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.refreshTokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.s.refreshTokens, token)
	cp := *rt
	return &cp, nil
}

func (r memRefreshTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, rt := range r.s.refreshTokens {
		if rt.ExpiresAt.Before(now) {
			delete(r.s.refreshTokens, k)
			n++
		}
	}
	return n, nil
}

// --- sign-in nonces ---

type memNonces struct{ s *memStore }

func (r memNonces) Create(_ context.Context, email string, nonce int32) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.nonces[email]; ok {
		return common.ErrorAlreadyExists
	}
	r.s.nonces[email] = nonce
	return nil
}

func (r memNonces) Get(_ context.Context, email string) (int32, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.nonces[email]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return n, nil
}

func (r memNonces) GetForUpdate(ctx context.Context, email string) (int32, error) {
	return r.Get(ctx, email)
}

func (r memNonces) Set(_ context.Context, email string, nonce int32) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.nonces[email]; !ok {
		return common.ErrorNotFound
	}
	r.s.nonces[email] = nonce
	return nil
}

// --- one-time codes ---

type memOTPs struct{ s *memStore }

func (r memOTPs) Upsert(_ context.Context, otp *models.OneTimeCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *otp
	r.s.otps[otp.Email] = &cp
	return nil
}

func (r memOTPs) GetForUpdate(_ context.Context, email string) (*models.OneTimeCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	otp, ok := r.s.otps[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *otp
	return &cp, nil
}

func (r memOTPs) Delete(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.otps[email]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.otps, email)
	return nil
}

func (r memOTPs) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, otp := range r.s.otps {
		if otp.Expiration.Before(now) {
			delete(r.s.otps, k)
			n++
		}
	}
	return n, nil
}

// --- budgets ---

type memBudgets struct{ s *memStore }

func (r memBudgets) Create(_ context.Context, b *models.Budget) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.ModifiedAt = r.s.now()
	cp := *b
	r.s.budgets[b.ID] = &cp
	return nil
}

func (r memBudgets) Get(_ context.Context, id uuid.UUID) (*models.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.budgets[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *b
	cp.Categories, cp.Entries = nil, nil
	return &cp, nil
}

func (r memBudgets) LockForUpdate(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.budgets[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r memBudgets) DeleteIfUnreferenced(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for ref := range r.s.accessKeys {
		if ref.budgetID == id {
			return false, nil
		}
	}
	if _, ok := r.s.budgets[id]; !ok {
		return false, nil
	}
	delete(r.s.budgets, id)
	for k, c := range r.s.categories {
		if c.BudgetID == id {
			delete(r.s.categories, k)
		}
	}
	for k, e := range r.s.entries {
		if e.BudgetID == id {
			delete(r.s.entries, k)
		}
	}
	for ref := range r.s.acceptKeys {
		if ref.budgetID == id {
			delete(r.s.acceptKeys, ref)
		}
	}
	for k, inv := range r.s.invitations {
		if inv.BudgetID == id {
			delete(r.s.invitations, k)
		}
	}
	return true, nil
}

// --- categories and entries ---

type memCategories struct{ s *memStore }

func (r memCategories) Create(_ context.Context, c *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.budgets[c.BudgetID]; !ok {
		return common.ErrorNotFound
	}
	c.ModifiedAt = r.s.now()
	cp := *c
	r.s.categories[c.ID] = &cp
	return nil
}

func (r memCategories) ListByBudget(_ context.Context, budgetID uuid.UUID) ([]models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Category
	for _, c := range r.s.categories {
		if c.BudgetID == budgetID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r memCategories) Delete(_ context.Context, id, budgetID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok || c.BudgetID != budgetID {
		return common.ErrorNotFound
	}
	delete(r.s.categories, id)
	for _, e := range r.s.entries {
		if e.CategoryID.Valid && e.CategoryID.UUID == id {
			e.CategoryID = uuid.NullUUID{}
		}
	}
	return nil
}

type memEntries struct{ s *memStore }

func (r memEntries) Create(_ context.Context, e *models.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.budgets[e.BudgetID]; !ok {
		return common.ErrorNotFound
	}
	if e.CategoryID.Valid {
		c, ok := r.s.categories[e.CategoryID.UUID]
		if !ok || c.BudgetID != e.BudgetID {
			return common.ErrorNotFound
		}
	}
	e.ModifiedAt = r.s.now()
	cp := *e
	r.s.entries[e.ID] = &cp
	return nil
}

func (r memEntries) ListByBudget(_ context.Context, budgetID uuid.UUID) ([]models.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Entry
	for _, e := range r.s.entries {
		if e.BudgetID == budgetID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r memEntries) Delete(_ context.Context, id, budgetID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || e.BudgetID != budgetID {
		return common.ErrorNotFound
	}
	delete(r.s.entries, id)
	return nil
}

// --- blobs ---

type memBlobs struct{ s *memStore }

func (r memBlobs) Insert(_ context.Context, t blobs.Target, blob []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tbl, ok := r.s.userBlobs[t.Table]
	if !ok {
		return common.ErrInvalidState
	}
	tbl[t.ID] = &blobRow{blob: blob, digest: cryptox.Digest(blob)}
	return nil
}

func (r memBlobs) Update(_ context.Context, t blobs.Target, blob, expectedDigest []byte) ([]byte, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var current *[]byte
	var stored *[]byte
	switch t.Table {
	case blobs.Budgets:
		b, ok := r.s.budgets[t.ID]
		if !ok {
			return nil, common.ErrorNotFound
		}
		current, stored = &b.EncryptedBlobDigest, &b.EncryptedBlob
	case blobs.Categories:
		c, ok := r.s.categories[t.ID]
		if !ok || c.BudgetID != t.BudgetID {
			return nil, common.ErrorNotFound
		}
		current, stored = &c.EncryptedBlobDigest, &c.EncryptedBlob
	case blobs.Entries:
		e, ok := r.s.entries[t.ID]
		if !ok || e.BudgetID != t.BudgetID {
			return nil, common.ErrorNotFound
		}
		current, stored = &e.EncryptedBlobDigest, &e.EncryptedBlob
	default:
		row, ok := r.s.userBlobs[t.Table][t.ID]
		if !ok {
			return nil, common.ErrorNotFound
		}
		current, stored = &row.digest, &row.blob
	}

	if !bytes.Equal(*current, expectedDigest) {
		return nil, common.ErrOutOfDate
	}
	digest := cryptox.Digest(blob)
	*stored = blob
	*current = digest
	return digest, nil
}

// --- access keys ---

type memAccessKeys struct{ s *memStore }

func (r memAccessKeys) Create(_ context.Context, k *models.AccessKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ref := keyRef{k.KeyID, k.BudgetID}
	if _, ok := r.s.accessKeys[ref]; ok {
		return common.ErrorAlreadyExists
	}
	if _, ok := r.s.budgets[k.BudgetID]; !ok {
		return common.ErrorNotFound
	}
	cp := *k
	r.s.accessKeys[ref] = &cp
	return nil
}

func (r memAccessKeys) Get(_ context.Context, keyID, budgetID uuid.UUID) (*models.AccessKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failAccessKeyGet != nil {
		return nil, r.s.failAccessKeyGet
	}
	k, ok := r.s.accessKeys[keyRef{keyID, budgetID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *k
	return &cp, nil
}

func (r memAccessKeys) GetMultiple(_ context.Context, refs []accesskeys.KeyRef) ([]*models.AccessKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.AccessKey
	for _, ref := range refs {
		if k, ok := r.s.accessKeys[keyRef{ref.KeyID, ref.BudgetID}]; ok {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memAccessKeys) Delete(_ context.Context, keyID, budgetID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ref := keyRef{keyID, budgetID}
	if _, ok := r.s.accessKeys[ref]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.accessKeys, ref)
	return nil
}

func (r memAccessKeys) CountForBudget(_ context.Context, budgetID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for ref := range r.s.accessKeys {
		if ref.budgetID == budgetID {
			n++
		}
	}
	return n, nil
}

// --- accept keys ---

type memAcceptKeys struct{ s *memStore }

func (r memAcceptKeys) Create(_ context.Context, k *models.AcceptKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ref := keyRef{k.KeyID, k.BudgetID}
	if _, ok := r.s.acceptKeys[ref]; ok {
		return common.ErrorAlreadyExists
	}
	cp := *k
	r.s.acceptKeys[ref] = &cp
	return nil
}

func (r memAcceptKeys) Get(_ context.Context, keyID, budgetID uuid.UUID) (*models.AcceptKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.acceptKeys[keyRef{keyID, budgetID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *k
	return &cp, nil
}

func (r memAcceptKeys) Delete(_ context.Context, keyID, budgetID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ref := keyRef{keyID, budgetID}
	if _, ok := r.s.acceptKeys[ref]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.acceptKeys, ref)
	r.s.dropInvitationsFor(ref)
	return nil
}

func (r memAcceptKeys) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for ref, k := range r.s.acceptKeys {
		if k.Expiration.Before(now) {
			delete(r.s.acceptKeys, ref)
			r.s.dropInvitationsFor(ref)
			n++
		}
	}
	return n, nil
}

func (m *memStore) dropInvitationsFor(ref keyRef) {
	for id, inv := range m.invitations {
		if inv.AcceptKeyID == ref.keyID && inv.BudgetID == ref.budgetID {
			delete(m.invitations, id)
		}
	}
}

// --- invitations ---

type memInvitations struct{ s *memStore }

func (r memInvitations) Create(_ context.Context, inv *models.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.acceptKeys[keyRef{inv.AcceptKeyID, inv.BudgetID}]; !ok {
		return common.ErrorNotFound
	}
	cp := *inv
	cp.CreatedAt = r.s.now()
	r.s.invitations[inv.ID] = &cp
	return nil
}

func (r memInvitations) GetSenderPublicKey(_ context.Context, id uuid.UUID) ([]byte, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return inv.SenderPublicKey, nil
}

func (r memInvitations) DeleteForRecipient(_ context.Context, id, acceptKeyID, budgetID uuid.UUID, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok || inv.AcceptKeyID != acceptKeyID || inv.BudgetID != budgetID || inv.RecipientEmail != email {
		return common.ErrorNotFound
	}
	delete(r.s.invitations, id)
	return nil
}

func (r memInvitations) Delete(_ context.Context, id uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok {
		return uuid.Nil, uuid.Nil, common.ErrorNotFound
	}
	delete(r.s.invitations, id)
	return inv.AcceptKeyID, inv.BudgetID, nil
}

func (r memInvitations) ListForRecipient(_ context.Context, email string, now time.Time) ([]*models.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Invitation
	for _, inv := range r.s.invitations {
		k, ok := r.s.acceptKeys[keyRef{inv.AcceptKeyID, inv.BudgetID}]
		if inv.RecipientEmail == email && ok && k.Expiration.After(now) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}
