package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yndnr/storefront-go/internal/backend"
	"github.com/yndnr/storefront-go/internal/cache"
	"github.com/yndnr/storefront-go/internal/cli/config"
	"github.com/yndnr/storefront-go/internal/connection"
	"github.com/yndnr/storefront-go/internal/core/service"
	"github.com/yndnr/storefront-go/internal/infra/shutdown"
	"github.com/yndnr/storefront-go/internal/infra/tlsroots"
	"github.com/yndnr/storefront-go/internal/storage"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
	"github.com/yndnr/storefront-go/internal/telemetry/metric"
	"github.com/yndnr/storefront-go/pkg/crypto/adaptive"
)

const shutdownTimeout = 10 * time.Second

// App is a wired client runtime.
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metric.Registry

	Storage storage.KVEngine
	Tokens  *service.TokenStore
	Cache   *cache.Cache

	Core    *connection.Client
	Catalog *connection.Client

	Session  *service.SessionCoordinator
	Workflow *service.Workflow

	shutdown *shutdown.Handler
}

// Option adjusts New.
type Option func(*options)

type options struct {
	logOutput io.Writer
	engine    storage.KVEngine
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithEngine uses kv for token storage instead of opening one from the
// configuration. The caller keeps ownership of kv.
func WithEngine(kv storage.KVEngine) Option {
	return func(o *options) { o.engine = kv }
}

// New builds an App from cfg and restores the stored session.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	log, err := initLogger(cfg, o.logOutput)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   log,
		Metrics:  metric.NewRegistry(),
		shutdown: shutdown.NewHandler(shutdownTimeout),
	}

	if err := a.initStorage(ctx, o.engine); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := a.initServices(); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init services: %w", err)
	}
	if err := a.Metrics.RegisterState(a); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("register state metrics: %w", err)
	}

	state := a.Session.Restore(ctx)
	log.Debug("client ready",
		"core", a.Core.BaseURL(),
		"catalog", a.Catalog.BaseURL(),
		"session", state.String(),
		"storage", cfg.Storage.Engine)
	return a, nil
}

// initLogger builds the logger and makes it the process default.
func initLogger(cfg *config.Config, w io.Writer) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: w,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

func (a *App) initStorage(ctx context.Context, kv storage.KVEngine) error {
	if kv == nil {
		var err error
		kv, err = storage.Open(storage.KVConfig{
			Engine: a.Config.Storage.Engine,
			Dir:    a.Config.Storage.Dir,
			Badger: storage.DefaultBadgerConfig(),
		}, a.Logger.Slog())
		if err != nil {
			return err
		}
		a.shutdown.OnShutdown(func(context.Context) error {
			a.Logger.Debug("closing token storage")
			return kv.Close()
		})
		if be, ok := kv.(*storage.BadgerEngine); ok {
			be.RegisterMetrics(a.Metrics.Registerer())
		}
	}
	a.Storage = kv

	tokens, err := service.NewTokenStore(ctx, service.TokenStoreConfig{
		Engine:     kv,
		Passphrase: a.Config.Storage.Passphrase,
		Cipher:     adaptive.CipherType(a.Config.Storage.Cipher),
		Logger:     a.Logger,
	})
	if err != nil {
		return err
	}
	a.Tokens = tokens
	return nil
}

func (a *App) initServices() error {
	cfg := a.Config

	coreTLS, err := tlsroots.ClientConfig(cfg.Core.TLS())
	if err != nil {
		return fmt.Errorf("core: %w", err)
	}
	catalogTLS, err := tlsroots.ClientConfig(cfg.Catalog.TLS())
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	core, err := connection.New(connection.Config{
		Name:      "core",
		BaseURL:   cfg.Core.BaseURL,
		Timeout:   cfg.Core.Timeout,
		RateLimit: cfg.Core.RateLimit,
		Burst:     cfg.Core.Burst,
		TLS:       coreTLS,
		Tokens:    a.Tokens,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})
	if err != nil {
		return err
	}
	catalog, err := connection.New(connection.Config{
		Name:      "catalog",
		BaseURL:   cfg.Catalog.BaseURL,
		Timeout:   cfg.Catalog.Timeout,
		RateLimit: cfg.Catalog.RateLimit,
		Burst:     cfg.Catalog.Burst,
		TLS:       catalogTLS,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})
	if err != nil {
		return err
	}
	a.Core, a.Catalog = core, catalog

	a.Cache = cache.New(cache.WithMetrics(a.Metrics), cache.WithLogger(a.Logger))

	sessionQuery := cache.Options{
		StaleTime:   cfg.Cache.StaleTime,
		Retry:       cfg.Cache.Retry,
		RetryDelay:  cfg.Cache.RetryDelay,
		ShouldRetry: connection.Retryable,
	}
	catalogQuery := sessionQuery
	catalogQuery.StaleTime = cfg.Cache.CatalogStaleTime

	a.Session = service.NewSessionCoordinator(service.SessionConfig{
		Auth:    backend.NewAuth(core),
		Tokens:  a.Tokens,
		Cache:   a.Cache,
		Profile: sessionQuery,
		Metrics: a.Metrics,
		Logger:  a.Logger,
	})
	a.shutdown.OnShutdown(func(context.Context) error {
		a.Session.Close()
		return nil
	})

	a.Workflow = service.NewWorkflow(service.WorkflowConfig{
		Cart:         backend.NewCart(core),
		Orders:       backend.NewOrders(core),
		Catalog:      backend.NewCatalog(catalog),
		Tokens:       a.Tokens,
		Cache:        a.Cache,
		SessionQuery: sessionQuery,
		CatalogQuery: catalogQuery,
		Logger:       a.Logger,
	})
	return nil
}

// CacheEntries implements metric.StateSource.
func (a *App) CacheEntries() int {
	if a.Cache == nil {
		return 0
	}
	return a.Cache.Len()
}

// SessionState implements metric.StateSource.
func (a *App) SessionState() string {
	if a.Session == nil {
		return "anonymous"
	}
	return a.Session.State().String()
}

// Shutdown exposes the handler so callers can add hooks or listen for
// signals.
func (a *App) Shutdown() *shutdown.Handler { return a.shutdown }

// Close runs the shutdown hooks. Safe to call more than once.
func (a *App) Close() error {
	return a.shutdown.Shutdown()
}
