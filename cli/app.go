package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nishantd01/smart-backoffice/cache"
	"github.com/nishantd01/smart-backoffice/config"
	"github.com/nishantd01/smart-backoffice/db"
	"github.com/nishantd01/smart-backoffice/events"
	"github.com/nishantd01/smart-backoffice/metrics"
	"github.com/nishantd01/smart-backoffice/migrations"
	"github.com/nishantd01/smart-backoffice/notify"
	"github.com/nishantd01/smart-backoffice/payment"
	"github.com/nishantd01/smart-backoffice/provision"
	"github.com/nishantd01/smart-backoffice/service"
	"github.com/nishantd01/smart-backoffice/store"
	"github.com/nishantd01/smart-backoffice/utils"
)

// App holds every component built from a Config.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Google      *utils.GoogleServices
	Redis       *cache.Redis
	Provisioner *provision.Provisioner
	Leads       *service.LeadService

	closers []func() error
}

// Build wires the service. Missing optional backends degrade: without Google
// credentials the memory and SQL stores still run, provisioning happens in
// memory and mail is only logged.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.Registry(cfg.MetricsNamespace),
	}
	if err := app.build(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger
	loc := cfg.Location()

	google, err := utils.NewGoogleServices(ctx, cfg.CredentialsFile, cfg.TokenFile, cfg.Impersonate)
	switch {
	case err == nil:
		a.Google = google
	case cfg.StoreDriver == config.StoreSheets:
		return fmt.Errorf("init google services: %w", err)
	default:
		logger.Warn("google services unavailable, provisioning in memory and logging mail", "error", err)
	}

	var locker store.Locker
	if cfg.RedisAddr != "" {
		a.Redis = cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			UseTLS:   cfg.RedisTLS,
		}, logger)
		a.closers = append(a.closers, a.Redis.Close)
		if err := a.Redis.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", "error", err)
		}
		locker = store.NewRedisLocker(a.Redis.Client(), cfg.LockTTL)
	}

	backend, err := a.storeBackend(ctx)
	if err != nil {
		return err
	}
	leadStore := store.New(backend, logger, store.Options{
		Locker:   locker,
		Location: loc,
		Metrics:  a.Metrics,
	})

	a.Provisioner = a.newProvisioner()

	var sender notify.Sender = notify.LogSender{Logger: logger}
	if a.Google != nil {
		sender = notify.NewGmailSender(a.Google.Gmail, cfg.SenderEmail)
	}
	dispatcher := notify.NewDispatcher(sender, notify.Config{
		AdminEmail:    cfg.NotificationMail,
		SpreadsheetID: cfg.SpreadsheetID,
		Location:      loc,
	}, logger, a.Metrics)

	var payments service.Payments
	if cfg.StripeSecretKey != "" {
		var paymentCache payment.Cache
		if a.Redis != nil {
			paymentCache = a.Redis
		}
		payments = payment.New(payment.Config{
			BaseURL:         cfg.StripeBaseURL,
			SecretKey:       cfg.StripeSecretKey,
			Timeout:         cfg.StripeTimeout,
			DefaultCurrency: cfg.DefaultCurrency,
			PublicSiteURL:   cfg.PublicSiteURL,
		}, logger, a.Metrics, paymentCache)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payment actions disabled")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		rmq, err := events.Dial(cfg.RabbitMQURL, cfg.LeadsExchange, logger, a.Metrics)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events disabled", "error", err)
		} else {
			publisher = rmq
			a.closers = append(a.closers, rmq.Close)
		}
	}

	a.Leads = service.NewLeadService(service.LeadServiceConfig{
		Table:       cfg.LeadsTable,
		Store:       leadStore,
		Provisioner: a.Provisioner,
		Notifier:    dispatcher,
		Payments:    payments,
		Events:      publisher,
		Metrics:     a.Metrics,
	}, logger)
	return nil
}

func (a *App) storeBackend(ctx context.Context) (store.Backend, error) {
	cfg := a.Config
	switch cfg.StoreDriver {
	case config.StoreSheets:
		return store.NewSheetsBackend(a.Google.Sheets, cfg.SpreadsheetID), nil
	case config.StorePostgres, config.StoreSQLite:
		dialect := db.Dialect(cfg.StoreDriver)
		conn, err := db.Open(ctx, dialect, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init %s store: %w", dialect, err)
		}
		a.closers = append(a.closers, conn.Close)
		if err := db.ApplyMigrations(ctx, conn, migrations.Files); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.Logger.Info("database migrated", "dialect", dialect)
		return store.NewSQLBackend(conn, dialect), nil
	case config.StoreMemory:
		return store.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func (a *App) newProvisioner() *provision.Provisioner {
	cfg := a.Config
	opts := provision.Options{
		Location: cfg.Location(),
		Metrics:  a.Metrics,
	}
	if a.Google == nil {
		return provision.New(provision.NewMemoryBackend(), a.Logger, opts)
	}
	if cfg.BindScript {
		opts.Binder = provision.NewScriptBinder(a.Google.Script, provision.ScriptParams{
			NotificationEmail: cfg.NotificationMail,
		}, cfg.TimeZone)
	}
	backend := provision.NewSheetsBackend(a.Google.Sheets, a.Google.Drive, cfg.TemplateFolderID)
	return provision.New(backend, a.Logger, opts)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
