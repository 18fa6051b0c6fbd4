// Package app wires the MovieScore server runtime: config, logging, storage,
// the auth core and its HTTP adapter.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/gouveags/moviescore/cmd/identity"
	"github.com/gouveags/moviescore/cmd/internal/auth/account"
	"github.com/gouveags/moviescore/cmd/internal/auth/api"
	"github.com/gouveags/moviescore/cmd/internal/auth/session"
	"github.com/gouveags/moviescore/cmd/internal/mailer"
	"github.com/gouveags/moviescore/cmd/internal/store"
	"github.com/gouveags/moviescore/cmd/security/atrest"
	"github.com/gouveags/moviescore/cmd/security/password"
	"github.com/gouveags/moviescore/cmd/security/token"
)

// App owns the HTTP server and the resources it closes on shutdown.
type App struct {
	cfg Config
	log Logger

	db       store.Engine
	redis    *redis.Client
	accounts *account.Service

	handler http.Handler
}

// New constructs a fully wired App. The caller must call Close unless Run is used.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := store.Open(ctx, store.Config{
		Client:      cfg.DBClient,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.db = db
	log.Info("db.ready", "client", db.Dialect())

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	svc, st, err := newAccountService(cfg, log, db, sessCfg)
	if err != nil {
		return nil, err
	}
	a.accounts = svc
	if err := seedLocalUser(ctx, log, cfg, svc); err != nil {
		return nil, fmt.Errorf("seed local user: %w", err)
	}

	reg := newRegistry()
	opts := []api.HandlerOption{
		api.WithAuditSink(st),
		api.WithMetrics(api.NewMetrics(reg)),
	}

	authCfg := api.LoadConfigFromEnv(cfg.Production(), sessCfg)

	if cfg.RedisURL != "" {
		rdb, err := newRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		opts = append(opts, api.WithLimiter(api.NewRedisLimiter(rdb, authCfg.ThrottleMax, authCfg.ThrottleWindow)))
		log.Info("throttle.redis.enabled")
	}

	authHandler, err := api.NewHandler(log, svc, authCfg, opts...)
	if err != nil {
		return nil, err
	}

	a.handler = newRouter(log, cfg, db, reg, authHandler)
	ok = true
	return a, nil
}

func newAccountService(cfg Config, log Logger, db store.Engine, sessCfg session.Config) (*account.Service, *identity.SQLStore, error) {
	prod := cfg.Production()

	pepper, err := token.PepperFromEnv(prod)
	if err != nil {
		return nil, nil, err
	}
	cipher, err := atrest.FromEnv(prod)
	if err != nil {
		return nil, nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	acctCfg, err := account.LoadConfigFromEnv(prod)
	if err != nil {
		return nil, nil, err
	}

	st, err := identity.NewSQLStore(db)
	if err != nil {
		return nil, nil, err
	}
	sessions, err := session.NewService(sessCfg, st, pepper)
	if err != nil {
		return nil, nil, err
	}

	opts := []account.Option{account.WithLogger(log)}
	mcfg, err := mailer.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if mcfg.Enabled() {
		m, err := mailer.New(mcfg)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, account.WithResetSender(m))
		log.Info("mailer.smtp.enabled", "host", mcfg.Host)
	} else if prod {
		log.Warn("mailer.disabled", "reason", "MOVIESCORE_SMTP_HOST not set; reset links are not delivered")
	}

	svc, err := account.NewService(acctCfg, account.Deps{
		Store:     st,
		Sessions:  sessions,
		Passwords: pwCfg,
		Cipher:    cipher,
		Pepper:    pepper,
	}, opts...)
	if err != nil {
		return nil, nil, err
	}
	return svc, st, nil
}

func newRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse MOVIESCORE_REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Handler exposes the fully wrapped router.
func (a *App) Handler() http.Handler { return a.handler }

// Close waits for pending reset deliveries, then releases the store and redis connections.
func (a *App) Close() {
	if a.accounts != nil {
		a.accounts.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("store.close.fail", "err", err)
		}
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "base_url", runtimeBaseURL(a.cfg.HTTPAddr), "env", a.cfg.Env)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// runtimeBaseURL turns a listen address into a clickable local URL.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
