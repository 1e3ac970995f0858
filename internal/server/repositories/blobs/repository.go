// Package blobs implements the digest-guarded update shared by every table
// holding an encrypted blob.
//
// A writer must present the digest of the blob it last read. The stored
// digest is read under a row lock and compared byte for byte; on mismatch
// nothing is written and common.ErrOutOfDate is returned. Update therefore
// has to run inside a transaction.
package blobs

import (
	"context"

	"github.com/google/uuid"
)

// Table names a table with encrypted_blob and encrypted_blob_digest columns.
type Table string

const (
	Budgets         Table = "budgets"
	Categories      Table = "categories"
	Entries         Table = "entries"
	UserKeystores   Table = "user_keystores"
	UserPreferences Table = "user_preferences"
)

// Valid reports whether t is one of the known blob tables.
func (t Table) Valid() bool {
	switch t {
	case Budgets, Categories, Entries, UserKeystores, UserPreferences:
		return true
	}
	return false
}

// Scoped reports whether rows of t belong to a budget.
func (t Table) Scoped() bool {
	return t == Categories || t == Entries
}

// Target identifies one blob row. BudgetID is required for scoped tables and
// ignored otherwise.
type Target struct {
	Table    Table
	ID       uuid.UUID
	BudgetID uuid.UUID
}

type Repository interface {
	// Insert creates a row holding only a blob, for tables without further columns.
	Insert(ctx context.Context, t Target, blob []byte) error
	// Update replaces the blob if expectedDigest matches the stored digest and
	// returns the new digest.
	Update(ctx context.Context, t Target, blob, expectedDigest []byte) ([]byte, error)
}
