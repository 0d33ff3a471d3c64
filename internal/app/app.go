// Package app wires configuration, logging, the selected store backend, the
// migration engine and metrics into one runnable unit.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/tokenmigrate/internal/archive"
	"github.com/dmitrijs2005/tokenmigrate/internal/config"
	"github.com/dmitrijs2005/tokenmigrate/internal/logging"
	"github.com/dmitrijs2005/tokenmigrate/internal/metrics"
	"github.com/dmitrijs2005/tokenmigrate/internal/migrator"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/dmitrijs2005/tokenmigrate/internal/store/memory"
	"github.com/dmitrijs2005/tokenmigrate/internal/store/mongo"
	"github.com/dmitrijs2005/tokenmigrate/internal/store/postgres"
	"github.com/dmitrijs2005/tokenmigrate/internal/tokenhash"
)

// openStore connects to the backend named by cfg.StoreDriver.
var openStore = func(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseDSN)
	case config.DriverMongo:
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// newUploader builds the archive target. Replaced in tests.
var newUploader = func(ctx context.Context, cfg *config.Config) (archive.Uploader, error) {
	return archive.NewS3Client(ctx, archive.S3Options{
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3RootUser,
		SecretKey:    cfg.S3RootPassword,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   store.Store
	engine  *migrator.Engine
	metrics *metrics.Recorder
}

// NewApp validates cfg and connects to the configured store within
// cfg.ConnectTimeout. Logs go to logOut.
func NewApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	s, err := openStore(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	a, err := build(cfg, s, logOut)
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	a.logger.Debug(ctx, "store connected", "driver", cfg.StoreDriver)
	return a, nil
}

// NewWithStore is NewApp over an already connected store.
func NewWithStore(cfg *config.Config, s store.Store, logOut io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return build(cfg, s, logOut)
}

func build(cfg *config.Config, s store.Store, logOut io.Writer) (*App, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		return nil, err
	}

	hasher, err := tokenhash.New(cfg.Argon2Params())
	if err != nil {
		return nil, err
	}

	rec := metrics.NewRecorder()
	engine := migrator.New(s.Users(), s.Backups(), hasher, logger, migrator.WithMetrics(rec))

	return &App{config: cfg, logger: logger, store: s, engine: engine, metrics: rec}, nil
}

func (app *App) Logger() logging.Logger { return app.logger }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run executes job with a context cancelled on SIGINT, SIGTERM or SIGQUIT,
// then pushes run metrics when a Pushgateway is configured.
func (app *App) Run(ctx context.Context, job func(ctx context.Context) error) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	err := job(ctx)

	if perr := app.metrics.Push(context.WithoutCancel(ctx), app.config.PushgatewayURL); perr != nil {
		app.logger.Warn(ctx, "metrics push failed", "error", perr)
	}
	return err
}

// Migrate hashes all plaintext tokens, or only counts them in dry-run mode.
func (app *App) Migrate(ctx context.Context, secret []byte) (*migrator.Report, error) {
	if app.config.DryRun {
		return app.engine.Plan(ctx)
	}
	return app.engine.Migrate(ctx, secret)
}

func (app *App) Revert(ctx context.Context) (*migrator.Report, error) {
	return app.engine.Revert(ctx)
}

func (app *App) Lookup(ctx context.Context, field models.TokenField, token string, secret []byte) (*models.User, error) {
	return app.engine.Lookup(ctx, field, token, secret)
}

// Archive uploads an encrypted copy of every backup.
func (app *App) Archive(ctx context.Context) (*archive.Result, error) {
	up, err := newUploader(ctx, app.config)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	e := archive.NewExporter(app.store.Backups(), up, app.config.S3Bucket, []byte(app.config.ArchivePassphrase), app.logger)
	return e.Export(ctx)
}

// Close disconnects the store and flushes the logger.
func (app *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := app.store.Close(ctx)
	if s, ok := app.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	return err
}
