package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/supportbot/core/config"
	coredatabase "github.com/m3rciful/supportbot/core/database"
	"github.com/m3rciful/supportbot/core/logger"
)

// Seeder loads reference data once storage is ready.
type Seeder interface {
	Seed(ctx context.Context) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context) error { return f(ctx) }

// Options control the bootstrap pipeline.
// Database is optional; without it no connection is opened and no migrations run.
type Options struct {
	Config     *coreconfig.Config
	Database   *coredatabase.Config
	Migrations fs.FS

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config, fs.FS) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Close releases resources held by the result.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, then connects to the database and applies migrations when configured.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Database == nil {
		logger.Info(ctx, logger.CompApp, "bootstrap.database", slog.String("status", "skip"))
		return res, nil
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if opts.Migrations != nil {
		if err := migrate(ctx, *opts.Database, opts.Migrations); err != nil {
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, *opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	res.DB = db
	return res, nil
}

// Seed runs seeders in order and stops at the first failure.
func Seed(ctx context.Context, seeders ...Seeder) error {
	for i, s := range seeders {
		start := time.Now()
		if err := s.Seed(ctx); err != nil {
			logger.Error(ctx, logger.CompDB, "seed", slog.Int("count", i), logger.Err(err))
			return fmt.Errorf("bootstrap: seeder %d: %w", i, err)
		}
		logger.Debug(ctx, logger.CompDB, "seed", slog.Int("count", i), slog.Duration("duration", logger.Took(start)))
	}
	return nil
}
