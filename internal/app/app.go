// Package app wires the shell together: configuration, the credential store,
// the backend client, the session store and the web server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"linkup/linkup-shell/internal/api"
	"linkup/linkup-shell/internal/audit"
	"linkup/linkup-shell/internal/auth"
	"linkup/linkup-shell/internal/config"
	"linkup/linkup-shell/internal/guard"
	"linkup/linkup-shell/internal/httpserver"
	"linkup/linkup-shell/internal/observability"
)

// credentialProfile names the row the postgres store keeps this shell's
// cookies under.
const credentialProfile = "default"

type App struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *observability.Metrics
	session *auth.Service
	client  *api.Client
	server  *httpserver.Server
	closers []io.Closer
}

// Options overrides pieces of the wiring. The zero value is the production
// setup.
type Options struct {
	Logger *zap.Logger
	// Transport replaces the innermost backend round tripper.
	Transport http.RoundTripper
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = observability.NewLogger(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}
	a := &App{
		cfg:     cfg,
		log:     logger,
		metrics: observability.NewMetrics(),
	}

	store, err := a.openCredentialStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	origin, err := backendOrigin(cfg.API.BaseURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	jar, err := auth.NewJar(ctx, origin, store, logger.Named("credentials"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("restore credentials: %w", err)
	}

	// The client reports auth failures to the session, which needs the
	// client as its backend.
	var session *auth.Service
	client, err := api.New(api.Config{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout,
		RateLimitRPS: float64(cfg.API.RateLimitRPS),
		RateBurst:    cfg.API.RateBurst,
		Jar:          jar,
		Metrics:      a.metrics,
		Logger:       logger.Named("api"),
		OnAuthFailure: func(reason string) {
			if session != nil {
				session.Expire(reason)
			}
		},
		LoginPath:   cfg.Routes.Login,
		PublicPaths: cfg.Routes.Public,
		Transport:   opts.Transport,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create backend client: %w", err)
	}
	session, err = auth.NewService(client, auth.ServiceConfig{
		Credentials: jar,
		Logger:      logger.Named("session"),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create session store: %w", err)
	}

	auditLogger := audit.NewLogger(cfg.AuditLogFile)
	a.closers = append(a.closers, auditLogger)
	session.Observe(auditLogger.SessionObserver(func(err error) {
		logger.Warn("audit write failed", zap.Error(err))
	}))
	session.Observe(func(e auth.Event) {
		a.metrics.SessionEvent(string(e.Kind), e.Outcome)
	})

	server, err := httpserver.New(cfg.HTTP, httpserver.Deps{
		Session: session,
		Backend: client,
		Routes: guard.Routes{
			Login:   cfg.Routes.Login,
			Landing: cfg.Routes.Landing,
			Public:  cfg.Routes.Public,
		},
		Audit:   auditLogger,
		Metrics: a.metrics,
		Logger:  logger.Named("http"),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create http server: %w", err)
	}

	a.session = session
	a.client = client
	a.server = server
	return a, nil
}

func (a *App) openCredentialStore(ctx context.Context) (auth.CredentialStore, error) {
	c := a.cfg.Credentials
	switch c.Store {
	case config.CredentialStorePostgres:
		db, err := sql.Open("postgres", c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		a.closers = append(a.closers, db)
		store, err := auth.NewPostgresCredentialStore(db, credentialProfile)
		if err != nil {
			return nil, fmt.Errorf("create postgres credential store: %w", err)
		}
		return store, nil
	case config.CredentialStoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.closers = append(a.closers, rdb)
		store, err := auth.NewRedisCredentialStore(rdb, c.RedisKey, c.RedisTTL)
		if err != nil {
			return nil, fmt.Errorf("create redis credential store: %w", err)
		}
		return store, nil
	default:
		store, err := auth.NewFileCredentialStore(c.File)
		if err != nil {
			return nil, fmt.Errorf("create file credential store: %w", err)
		}
		return store, nil
	}
}

// backendOrigin strips the path from the API base URL; cookies are scoped to
// the backend host, not to /api.
func backendOrigin(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid backend url %q", baseURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

func (a *App) Session() *auth.Service { return a.session }

func (a *App) Client() *api.Client { return a.client }

// Close releases the credential store connections and the audit file.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close resource", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.log.Sync()
}

// Run serves the shell until ctx is cancelled. The initial session check runs
// alongside; screens wait for it through the route guard.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	errCh := make(chan error, 1)

	go func() {
		a.log.Info("http server starting", zap.String("addr", a.cfg.HTTP.Addr), zap.String("backend", a.client.BaseURL()))
		errCh <- a.server.Start()
	}()
	go a.session.CheckSession(ctx)

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}
