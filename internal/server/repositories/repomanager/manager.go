// Package repomanager hands out repositories bound to either the pool or a
// transaction, so services can run several repositories in one tx.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
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
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	RollbackMigration(context.Context, *sql.DB) error

	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	SigninNonces(db dbx.DBTX) signinnonces.Repository
	OTPs(db dbx.DBTX) otps.Repository

	Budgets(db dbx.DBTX) budgets.Repository
	Categories(db dbx.DBTX) categories.Repository
	Entries(db dbx.DBTX) entries.Repository
	Blobs(db dbx.DBTX) blobs.Repository

	AccessKeys(db dbx.DBTX) accesskeys.Repository
	AcceptKeys(db dbx.DBTX) acceptkeys.Repository
	Invitations(db dbx.DBTX) invitations.Repository
}
