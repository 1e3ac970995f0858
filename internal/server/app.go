// Package server assembles the budgetkeeper process: storage, throttling,
// services, the gRPC endpoint, health probes and the expiry sweeper.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/clock"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/config"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/health"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/services"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/throttle"
	"github.com/dmitrijs2005/budgetkeeper/internal/workerpool"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/budgetkeeper/internal/server/grpc"
)

// PurgeInterval is how often expired accept keys, one-time codes and
// refresh tokens are swept.
const PurgeInterval = 10 * time.Minute

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *throttle.RedisCounter
	pool        *workerpool.Pool
	grpc        *gs.GRPCServer
	health      *health.Server
	maintenance *services.MaintenanceService
}

// NewApp connects to storage, applies migrations and builds every service.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := dbx.Open(ctx, c.DatabaseDSN, c.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}
	checks := map[string]health.Pinger{"postgres": db}

	clk := clock.Real()
	var counter throttle.Counter
	if c.RedisURL != "" {
		rc, err := throttle.NewRedisCounter(c.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = rc
		counter = rc
		checks["redis"] = health.PingerFunc(rc.Ping)
	} else {
		logger.Warn(ctx, "no redis configured, throttle counters are per process")
		counter = throttle.NewMemoryCounter(clk)
	}
	limiter := throttle.NewLimiter(counter)

	app.pool = workerpool.New(c.ComputePoolSize)

	access := services.NewAccessService(db, rm, clk)
	users := services.NewUserService(db, rm, c, access, limiter, services.NewLogOTPSender(logger), clk, logger)
	budgets := services.NewBudgetService(db, rm, access, limiter, c, logger)
	invitations := services.NewInvitationService(db, rm, access, limiter, app.pool, clk, c, logger)
	app.maintenance = services.NewMaintenanceService(db, rm, clk, c.UnverifiedUserTTL, logger)

	app.grpc, err = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, users, budgets, invitations, c.SecretKey)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.health = health.NewServer(c.EndpointAddrHealth, checks, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// purgeLoop sweeps expired rows until ctx is done. Failures are logged and
// retried on the next tick.
func (app *App) purgeLoop(ctx context.Context) error {
	t := time.NewTicker(PurgeInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := app.maintenance.PurgeExpired(ctx); err != nil && !errors.Is(err, context.Canceled) {
				app.logger.Error(ctx, "purge failed", "error", err)
			}
		}
	}
}

// Run serves until a termination signal arrives or one of the endpoints
// fails, then releases every resource.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.grpc.Run(gctx) })
	g.Go(func() error { return app.health.Run(gctx) })
	g.Go(func() error { return app.purgeLoop(gctx) })

	err := g.Wait()
	if cerr := app.Close(); cerr != nil {
		app.logger.Error(ctx, "shutdown error", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}

// Close waits for in-flight crypto jobs and closes storage handles.
func (app *App) Close() error {
	if app.pool != nil {
		app.pool.Wait()
	}
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	errs = append(errs, app.db.Close())
	return errors.Join(errs...)
}
