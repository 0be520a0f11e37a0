// Package app assembles the signature service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonwraymond/contractsig/auth"
	"github.com/jonwraymond/contractsig/cache"
	"github.com/jonwraymond/contractsig/config"
	"github.com/jonwraymond/contractsig/editgate"
	"github.com/jonwraymond/contractsig/health"
	"github.com/jonwraymond/contractsig/httpapi"
	"github.com/jonwraymond/contractsig/mirror"
	"github.com/jonwraymond/contractsig/observe"
	"github.com/jonwraymond/contractsig/reconcile"
	"github.com/jonwraymond/contractsig/remote"
	"github.com/jonwraymond/contractsig/resilience"
)

// App is a fully wired service. Close releases everything it opened.
type App struct {
	Config   config.Config
	Observer observe.Observer
	Logger   observe.Logger
	Service  *editgate.Service
	Health   *health.Aggregator

	// Authenticator is nil when authentication is disabled.
	Authenticator *auth.JWTAuthenticator

	remote *remote.Resilient
	mirror mirror.Mirror
	pool   *pgxpool.Pool
}

// New builds an App from cfg. cfg is expected to be validated.
func New(ctx context.Context, cfg config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.Observer, err = observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	a.Logger = a.Observer.Logger()

	store, err := a.openRemote(ctx)
	if err != nil {
		return nil, err
	}
	a.remote = remote.NewResilient(store, newExecutor(cfg.Remote, a.Logger))

	a.mirror, err = openMirror(cfg.Mirror)
	if err != nil {
		return nil, err
	}

	r, err := reconcile.New(a.remote, a.mirror, cache.NewMemoryCache(cfg.CachePolicy()),
		reconcile.WithObserver(a.Observer), reconcile.WithFetchTimeout(cfg.HTTP.RequestTimeout))
	if err != nil {
		return nil, err
	}
	if a.Service, err = editgate.NewService(r); err != nil {
		return nil, err
	}

	if cfg.Auth.Enabled {
		a.Authenticator, err = auth.NewJWTAuthenticator(cfg.Auth.JWT, []byte(cfg.Auth.Secret))
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	}

	a.Health = health.NewAggregator(health.DefaultTimeout)
	a.Health.Register(health.PingCheck("remote", a.remote))
	if cb := a.remote.CircuitBreaker(); cb != nil {
		a.Health.Register(health.CircuitCheck("remote_circuit", cb))
	}
	if p, ok := a.mirror.(health.Pinger); ok {
		a.Health.Register(health.PingCheck("mirror", p))
	}

	return a, nil
}

func (a *App) openRemote(ctx context.Context) (remote.Store, error) {
	rc := a.Config.Remote
	switch rc.Driver {
	case config.DriverMemory:
		return remote.NewMemoryStore(), nil
	case config.DriverPostgres:
		pool, err := remote.NewPool(ctx, rc.DSN, rc.Pool)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		if rc.Migrate {
			if err := remote.Migrate(ctx, pool); err != nil {
				return nil, err
			}
			a.Logger.Info(ctx, "remote schema applied")
		}
		return remote.NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("%w: unknown remote driver %q", config.ErrInvalid, rc.Driver)
	}
}

func openMirror(mc config.MirrorConfig) (mirror.Mirror, error) {
	switch mc.Driver {
	case config.DriverMemory:
		return mirror.NewMemory(), nil
	case config.DriverSQLite:
		return mirror.OpenSQLite(mc.Path)
	default:
		return nil, fmt.Errorf("%w: unknown mirror driver %q", config.ErrInvalid, mc.Driver)
	}
}

func newExecutor(rc config.RemoteConfig, logger observe.Logger) *resilience.Executor {
	opts := []resilience.ExecutorOption{
		resilience.WithTimeout(rc.Timeout),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  rc.Retry.MaxAttempts,
			InitialDelay: rc.Retry.InitialDelay,
			MaxDelay:     rc.Retry.MaxDelay,
			Jitter:       true,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				logger.Debug(context.Background(), "retrying remote call",
					observe.Field{Key: "attempt", Value: attempt},
					observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
					observe.ErrorField(err))
			},
		})),
	}
	if rc.Circuit.MaxFailures > 0 {
		opts = append(opts, resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  rc.Circuit.MaxFailures,
			ResetTimeout: rc.Circuit.ResetTimeout,
			OnStateChange: func(from, to resilience.State) {
				logger.Warn(context.Background(), "remote circuit changed state",
					observe.Field{Key: "from", Value: from.String()},
					observe.Field{Key: "to", Value: to.String()})
			},
		})))
	}
	return resilience.NewExecutor(opts...)
}

// Handler returns the HTTP handler for the service.
func (a *App) Handler() http.Handler {
	opts := httpapi.Options{
		Health:         a.Health,
		Logger:         a.Logger,
		RequestTimeout: a.Config.HTTP.RequestTimeout,
		MaxBodyBytes:   a.Config.HTTP.MaxBodyBytes,
	}
	if a.Authenticator != nil {
		opts.Authenticator = a.Authenticator
	}
	return httpapi.NewRouter(a.Service, opts)
}

// Close releases the mirror, the database pool and the telemetry pipeline.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil && !errors.Is(err, mirror.ErrClosed) {
			errs = append(errs, fmt.Errorf("mirror: %w", err))
		}
		a.mirror = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.Observer != nil {
		if err := a.Observer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observer: %w", err))
		}
		a.Observer = nil
	}
	return errors.Join(errs...)
}
