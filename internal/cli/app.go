package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/bakery-storefront/internal/adapter/api"
	"github.com/rl1809/bakery-storefront/internal/adapter/storage"
	"github.com/rl1809/bakery-storefront/internal/config"
	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/core/service"
	"github.com/rl1809/bakery-storefront/internal/logger"
	"github.com/rl1809/bakery-storefront/internal/metrics"
	"github.com/rl1809/bakery-storefront/internal/port"
)

// Backend is the set of adapters the services run on.
type Backend struct {
	Auth      port.AuthAPI
	Catalog   port.CatalogAPI
	Addresses port.AddressAPI
	Orders    port.OrderAPI
	Gateway   port.CartGateway
	Sessions  port.SessionStore
	Products  port.ProductCache // nil disables the product cache

	closers []io.Closer
}

func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type BackendFactory func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error)

// NewBackend connects the adapters selected by cfg.
func NewBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	client, err := api.NewClient(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
		Retry: api.RetryConfig{
			MaxRetries: cfg.API.MaxRetries,
			RetryDelay: 200 * time.Millisecond,
			MaxDelay:   2 * time.Second,
			Multiplier: 2,
		},
	}, log)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		Auth:      client,
		Catalog:   client,
		Addresses: client,
		Orders:    client,
		Gateway:   client,
	}

	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		b.Sessions = storage.NewMemorySessionStore()
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, rdb)

		adapter := storage.NewRedisAdapter(rdb, cfg.Session.KeyPrefix, cfg.App.Profile)
		if err := adapter.Ping(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("connect redis at %s: %w", cfg.Redis.Addr(), err)
		}
		b.Sessions = adapter
		if cfg.Catalog.CacheEnabled {
			b.Products = adapter
		}
	}

	if cfg.Gateway.Driver == config.GatewayMySQL {
		db, err := storage.OpenMySQL(ctx, cfg.Gateway.MySQLDSN)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, db)

		gw := storage.NewMySQLCartGateway(db)
		if err := gw.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Gateway = gw
	}

	return b, nil
}

// App is one CLI invocation: the services wired to a backend plus the sync
// controller that keeps the cart in step with the signed-in account.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Out    *OutputFormatter

	Cart     *service.CartStore
	Sync     *service.SyncController
	Metrics  *metrics.SyncMetrics
	Session  *service.SessionService
	Catalog  *service.CatalogService
	Checkout *service.CheckoutService
	Orders   *service.OrderService

	backend  *Backend
	cancel   context.CancelFunc
	loadErr  error
	reported error
}

func NewApp(cfg *config.Config, backend *Backend, log *zap.Logger) *App {
	store := service.NewCartStore()
	ctrl := service.NewSyncController(store, backend.Gateway, log, cfg.Sync.PushTimeout)
	m := metrics.New()
	ctrl.AddObserver(m)
	store.Subscribe(m.ObserveCart)

	session := service.NewSessionService(backend.Auth, backend.Addresses, backend.Sessions, log)
	session.OnIdentityChange(ctrl.IdentityChanged)

	catalog := service.NewCatalogService(backend.Catalog, backend.Products, cfg.Catalog.CacheTTL, log)

	return &App{
		Config:   cfg,
		Logger:   log,
		Cart:     store,
		Sync:     ctrl,
		Metrics:  m,
		Session:  session,
		Catalog:  catalog,
		Checkout: service.NewCheckoutService(store, catalog, backend.Orders, session, log),
		Orders:   service.NewOrderService(backend.Orders, session, log),
		backend:  backend,
	}
}

// Start runs the sync controller, restores the saved session and waits for
// its cart to load. A failed cart load is reported and left to the caller.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.Sync.Start(ctx)

	user, err := a.Session.Restore(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "restore session", err)
	}
	if user == nil {
		return nil
	}
	a.Out.VerboseLog("signed in as %s", user.Email)
	if err := a.Settle(ctx); err != nil {
		a.loadErr = err
		a.reportSync("could not load your cart", err)
	}
	return nil
}

// Settle waits until every cart change so far has been handled and returns
// the sync error, if any.
func (a *App) Settle(ctx context.Context) error {
	timeout := a.Config.Sync.FlushTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.Sync.Flush(ctx)
}

// RequireCart fails when a signed-in user's cart could not be loaded, so a
// mutation cannot overwrite the saved cart with a partial one.
func (a *App) RequireCart() error {
	if a.loadErr != nil && a.Session.IsAuthenticated() {
		return WrapExitError(ExitFailure, "cart is not loaded", a.loadErr)
	}
	return nil
}

// SettleAndReport waits for pending cart writes and warns about a failure
// without failing the command.
func (a *App) SettleAndReport(ctx context.Context) {
	a.reportSync("cart sync failed", a.Settle(ctx))
}

// reportSync warns about err once.
func (a *App) reportSync(what string, err error) {
	if err == nil || err == a.reported {
		return
	}
	a.reported = err
	a.Out.Warn("%s: %v", what, err)
}

func (a *App) User() (*domain.User, error) {
	user := a.Session.CurrentUser()
	if user == nil {
		return nil, NewExitError(ExitCommandError, "not signed in: run 'storefront login' first")
	}
	return user, nil
}

// Close waits for outstanding cart writes, reports a failed one and releases
// the backend.
func (a *App) Close(ctx context.Context) {
	if err := a.Settle(ctx); !errors.Is(err, service.ErrSyncStopped) {
		a.reportSync("cart sync failed", err)
	}
	a.Sync.Close()
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.backend.Close(); err != nil {
		a.Logger.Warn("close backend", zap.Error(err))
	}
	_ = a.Logger.Sync()
}

// openApp loads config, builds the backend and starts an App for cmd.
func openApp(cmd *cobra.Command, opts *RootOptions) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Profile != "" {
		cfg.App.Profile = opts.Profile
	}

	logCfg := &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "create logger", err)
	}

	ctx := cmd.Context()
	backend, err := opts.backend(ctx, cfg, log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "connect", err)
	}

	app := NewApp(cfg, backend, log)
	app.Out = opts.formatter(cmd)
	if err := app.Start(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// withApp runs fn inside a started App and always settles the cart before
// returning.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *App) error) error {
	app, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer app.Close(ctx)
	return fn(ctx, app)
}
