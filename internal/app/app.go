package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/m3rciful/supportbot/core/bootstrap"
	"github.com/m3rciful/supportbot/core/logger"
	tg "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/internal/bot"
	"github.com/m3rciful/supportbot/internal/compute"
	"github.com/m3rciful/supportbot/internal/dialogue"
	"github.com/m3rciful/supportbot/internal/records"
	"github.com/m3rciful/supportbot/internal/storage/dynamo"
	"github.com/m3rciful/supportbot/internal/storage/memory"
	"github.com/m3rciful/supportbot/internal/storage/postgres"
	"github.com/m3rciful/supportbot/internal/users"
	"github.com/m3rciful/supportbot/migrations"
)

// App owns the wired components and the resources behind them.
type App struct {
	cfg    *Config
	infra  *bootstrap.Result
	outbox *tg.BotOutbox
	bot    *bot.Bot
	chats  *dialogue.Serializer

	closers []func() error
}

// Options override infrastructure steps, mainly for tests.
type Options struct {
	Bootstrap bootstrap.Options
	// AWS loads the SDK configuration; defaults to the shared config chain.
	AWS func(ctx context.Context, region string) (aws.Config, error)
}

// Bootstrap connects storage and the compute service and builds the dispatcher.
func Bootstrap(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	a := &App{cfg: cfg, outbox: tg.NewBotOutbox()}

	bopts := opts.Bootstrap
	bopts.Config = cfg.CoreConfig()
	if cfg.Storage.Driver == StoragePostgres {
		bopts.Database = &cfg.Database
		if bopts.Migrations == nil {
			bopts.Migrations = migrations.FS
		}
	}
	infra, err := bootstrap.Run(ctx, bopts)
	if err != nil {
		return nil, err
	}
	a.infra = infra
	a.closers = append(a.closers, infra.Close)

	awsLoad := opts.AWS
	if awsLoad == nil {
		awsLoad = loadAWS
	}
	awsCfg := sync.OnceValues(func() (aws.Config, error) {
		return awsLoad(ctx, cfg.Storage.Region)
	})

	recs, usrs, err := a.openStorage(awsCfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	gen, err := a.openCompute(awsCfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if err := bootstrap.Seed(ctx, adminSeeder(usrs, cfg.Telegram.AdminID)); err != nil {
		_ = a.Close()
		return nil, err
	}

	b, err := bot.New(bot.Options{
		Outbox:  a.outbox,
		States:  dialogue.NewMemoryStore(),
		Records: recs,
		Users:   usrs,
		Answer: compute.Answerer(gen, compute.Params{
			SystemPrompt: cfg.Compute.SystemPrompt,
			Temperature:  *cfg.Compute.Temperature,
			TopP:         *cfg.Compute.TopP,
		}),
		AnswerTimeout: time.Duration(cfg.Compute.TimeoutSeconds) * time.Second,
		AdminID:       cfg.Telegram.AdminID,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.bot = b

	if dialogue.Concurrency(cfg.Dialogue.Concurrency) != dialogue.Unsynchronized {
		a.chats = dialogue.NewSerializer()
	}
	logger.Info(ctx, logger.CompApp, "bootstrap",
		slog.String("status", "ok"),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("compute", cfg.Compute.Driver),
		slog.String("concurrency", cfg.Dialogue.Concurrency),
	)
	return a, nil
}

func loadAWS(ctx context.Context, region string) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("app: load aws config: %w", err)
	}
	return cfg, nil
}

func (a *App) openStorage(awsCfg func() (aws.Config, error)) (records.Store, users.Store, error) {
	switch a.cfg.Storage.Driver {
	case StoragePostgres:
		return postgres.NewRecords(a.infra.DB), postgres.NewUsers(a.infra.DB), nil
	case StorageDynamoDB:
		c, err := awsCfg()
		if err != nil {
			return nil, nil, err
		}
		s, err := dynamo.New(dynamodb.NewFromConfig(c), a.cfg.Storage.Table)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		return s.Records(), s.Users(), nil
	default:
		return memory.NewRecords(), memory.NewUsers(), nil
	}
}

func (a *App) openCompute(awsCfg func() (aws.Config, error)) (compute.Generator, error) {
	cc := a.cfg.Compute
	if cc.Driver == ComputeHTTP {
		opts := compute.HTTPOptions{BaseURL: cc.BaseURL, Model: cc.Model, APIKey: cc.APIKey, KeyParam: cc.APIKeyParam}
		if cc.APIKey == "" {
			c, err := awsCfg()
			if err != nil {
				return nil, err
			}
			secrets, err := compute.NewParamStore(ssm.NewFromConfig(c))
			if err != nil {
				return nil, fmt.Errorf("app: %w", err)
			}
			opts.Secrets = secrets
		}
		h, err := compute.NewHTTP(opts)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return h, nil
	}
	g, err := compute.DialGRPC(cc.Addr, cc.Service, cc.Method)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.closers = append(a.closers, g.Close)
	return g, nil
}

// adminSeeder grants the configured admin the admin role.
func adminSeeder(s users.Store, adminID int64) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context) error {
		if adminID == 0 {
			return nil
		}
		created, err := s.Register(ctx, users.User{
			TelegramID: adminID,
			Username:   "admin",
			Role:       users.RoleAdmin,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if created {
			return nil
		}
		return s.SetRole(ctx, adminID, users.RoleAdmin)
	})
}

// TelegramRunOptions registers commands and builds middlewares and routes.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return tg.RunOptions{}, fmt.Errorf("app: register commands: %w", err)
	}
	mw := tg.MiddlewareOptions{OnLimited: a.bot.OnLimited()}
	if a.chats != nil {
		mw.Chats = a.chats
	}
	return tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg.CoreConfig(), mw),
		Routes:      a.bot.Routes(reg),
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			a.outbox.Bind(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, _ tg.Runtime) error {
			return a.bot.Close(ctx)
		},
	}, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
