package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"cashoffer/internal/bootstrap/config"
	"cashoffer/internal/bootstrap/database"
	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/infrastructure/events"
	"cashoffer/internal/infrastructure/identity"
	kvinfra "cashoffer/internal/infrastructure/kv"
	sqliterepo "cashoffer/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "cashoffer/internal/infrastructure/persistence/sqlite/uow"
	"cashoffer/internal/ports"
	"cashoffer/internal/usecase/offer"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			kvinfra.NewStore,
			fx.As(new(ports.KVStore)),
		),
	),
	fx.Provide(events.NewBroker),
	fx.Provide(provideRepositories),
	fx.Provide(provideIdentity),
	fx.Provide(provideOfferService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideLogger(cfg config.Config) (*slog.Logger, error) {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB, logger *slog.Logger) *App {
	return &App{
		Config: cfg,
		DB:     db,
		Logger: logger,
	}
}

func provideRepositories(db *gorm.DB) offer.Repositories {
	return offer.Repositories{
		Properties:    sqliterepo.NewPropertyRepository(db),
		Quotes:        sqliterepo.NewQuoteRepository(db),
		Inspections:   sqliterepo.NewInspectionRepository(db),
		Notifications: sqliterepo.NewNotificationRepository(db),
		History:       sqliterepo.NewHistoryRepository(db),
		Jobs:          sqliterepo.NewValuationJobRepository(db),
	}
}

func provideIdentity(cfg config.Config, db *gorm.DB, revoked ports.KVStore) (ports.Identity, error) {
	return identity.NewProvider(db, revoked, identity.NewLogSender(cfg.App.BaseURL), identity.Options{
		JWTSecret:       cfg.Identity.JWTSecret,
		TokenTTL:        cfg.Identity.TokenTTL,
		VerificationTTL: cfg.Identity.VerificationTTL,
	})
}

func provideOfferService(cfg config.Config, repos offer.Repositories, uow ports.UnitOfWork, broker *events.Broker) (*offer.Service, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}
	return offer.NewService(repos, uow, broker, OfferOptions(cfg, loc)), nil
}

// OfferOptions maps configuration onto the quote workflow.
func OfferOptions(cfg config.Config, loc *time.Location) offer.Options {
	return offer.Options{
		MinWait:              cfg.Valuation.MinWait,
		MaxWait:              cfg.Valuation.MaxWait,
		QuoteTTL:             cfg.Quote.TTL,
		StaleAfter:           cfg.Valuation.StaleAfter,
		MaxAttempts:          cfg.Valuation.MaxAttempts,
		RetryBackoff:         cfg.Valuation.RetryBackoff,
		AutoStartValuation:   cfg.Valuation.AutoStart,
		RequireVerifiedEmail: cfg.Identity.RequireVerifiedEmail,
		Location:             loc,
	}
}
