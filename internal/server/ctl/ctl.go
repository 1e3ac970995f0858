// Package ctl implements budgetctl, the operator command line for schema
// migrations and expiry sweeps.
package ctl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/budgetkeeper/internal/clock"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/flagx"
	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/config"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/services"
	"github.com/spf13/cobra"
)

// Operations is what the commands drive.
type Operations interface {
	MigrateUp(ctx context.Context) error
	MigrateDown(ctx context.Context) error
	Purge(ctx context.Context) (*services.PurgeResult, error)
	Close() error
}

// Opener builds Operations for the resolved configuration.
type Opener func(ctx context.Context, cfg *config.Config) (Operations, error)

// NewRootCmd assembles the command tree. Output goes to out.
func NewRootCmd(open Opener, out io.Writer) *cobra.Command {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	var configPath string

	// withOps opens Operations for one command and always closes them.
	withOps := func(cmd *cobra.Command, fn func(Operations) error) (err error) {
		ops, err := open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := ops.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(ops)
	}

	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Operate a budgetkeeper deployment",
		Long:          `Applies or reverts database migrations and sweeps expired accept keys, one-time codes, refresh tokens and accounts never verified.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				return nil
			}
			explicit := flagx.Snapshot(cmd.Flags())
			if err := config.ApplyFile(cfg, configPath); err != nil {
				return fmt.Errorf("config file %s: %w", configPath, err)
			}
			// explicit flags win over the file
			return explicit.Restore(cmd.Flags())
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to a JSON or YAML config file")
	config.BindFlags(pf, cfg)

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOps(cmd, func(ops Operations) error {
				if err := ops.MigrateUp(cmd.Context()); err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	})
	migrate.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOps(cmd, func(ops Operations) error {
				if err := ops.MigrateDown(cmd.Context()); err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "last migration reverted")
				return nil
			})
		},
	})

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired accept keys, one-time codes, refresh tokens and stale unverified accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOps(cmd, func(ops Operations) error {
				res, err := ops.Purge(cmd.Context())
				if err != nil {
					return fmt.Errorf("purge: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged accept_keys=%d otps=%d refresh_tokens=%d unverified_users=%d\n",
					res.AcceptKeys, res.OTPs, res.RefreshTokens, res.UnverifiedUsers)
				return nil
			})
		},
	}

	root.AddCommand(migrate, purge)
	return root
}

type dbOperations struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	maintenance *services.MaintenanceService
}

// OpenDatabase connects to PostgreSQL and is the Opener used by the binary.
func OpenDatabase(ctx context.Context, cfg *config.Config) (Operations, error) {
	db, err := dbx.Open(ctx, cfg.DatabaseDSN, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	rm := repomanager.NewPostgresRepositoryManager()
	logger := logging.NewJSON(os.Stderr, cfg.LogLevel)
	return &dbOperations{
		db:          db,
		repomanager: rm,
		maintenance: services.NewMaintenanceService(db, rm, clock.Real(), cfg.UnverifiedUserTTL, logger),
	}, nil
}

func (o *dbOperations) MigrateUp(ctx context.Context) error {
	return o.repomanager.RunMigrations(ctx, o.db)
}

func (o *dbOperations) MigrateDown(ctx context.Context) error {
	return o.repomanager.RollbackMigration(ctx, o.db)
}

func (o *dbOperations) Purge(ctx context.Context) (*services.PurgeResult, error) {
	return o.maintenance.PurgeExpired(ctx)
}

func (o *dbOperations) Close() error {
	return o.db.Close()
}
