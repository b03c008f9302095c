// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bienesraices/bienesraices/internal/auth"
	"github.com/bienesraices/bienesraices/internal/auth/memory"
	"github.com/bienesraices/bienesraices/internal/auth/postgres"
	"github.com/bienesraices/bienesraices/internal/config"
	"github.com/bienesraices/bienesraices/internal/logging"
	"github.com/bienesraices/bienesraices/internal/notify"
	"github.com/bienesraices/bienesraices/internal/observability"
	"github.com/bienesraices/bienesraices/internal/store"
	"github.com/bienesraices/bienesraices/internal/web"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the web server for the account pages, plus the metrics and
health endpoints when metrics-addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps runs the server until a signal arrives, ctx is cancelled
// or a listener fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = openStore
	}
	if deps.TransportFactory == nil {
		deps.TransportFactory = newTransport
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readiness, logger)
		}
	}
	if deps.WebServerFactory == nil {
		deps.WebServerFactory = func(addr string, handler http.Handler, logger *slog.Logger) WebServer {
			return web.NewServer(addr, handler, logger)
		}
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(config.LoadOptions{
		Path:   resolveConfigFile(deps.Getenv),
		Flags:  cmd.Flags(),
		Getenv: deps.Getenv,
	})
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(logging.Options{
		Service: "bienesraices",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})

	logger.Info("starting server",
		"addr", cfg.Web.Addr,
		"store", cfg.Store,
		"mail_driver", cfg.Mail.Driver)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	accounts, err := deps.StoreFactory(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open account store").Wrap(err)
	}
	if accounts.Close != nil {
		defer accounts.Close()
	}

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, accounts.Ready, logger)
		metrics = obsServer.Metrics()
	}

	handler, err := buildHandler(cfg, accounts.Accounts, deps, metrics, logger)
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
	}

	webServer := deps.WebServerFactory(cfg.Web.Addr, handler, logger)
	webErrCh, err := webServer.Start()
	if err != nil {
		stopServer(obsServer, "observability", logger)
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web", logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Server started on " + webServer.Addr())
	if deps.OnReady != nil {
		deps.OnReady(webServer.Addr())
	}

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	stopServer(webServer, "web", logger)
	stopServer(obsServer, "observability", logger)

	logger.Info("shutdown complete")
	return nil
}

type stoppable interface {
	Stop(ctx context.Context) error
}

func stopServer(s stoppable, name string, logger *slog.Logger) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// buildHandler wires the auth service to the web router.
func buildHandler(
	cfg *config.Config,
	accounts auth.AccountRepository,
	deps *ServeDeps,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (http.Handler, error) {
	sessions, err := auth.NewSessionIssuer(auth.SessionConfig{
		Secret: []byte(cfg.Session.Secret),
		TTL:    cfg.SessionTTL(),
		Issuer: cfg.Session.Issuer,
	})
	if err != nil {
		return nil, err
	}

	transport, err := deps.TransportFactory(cfg, logger)
	if err != nil {
		return nil, err
	}
	composer, err := notify.NewComposer(cfg.Web.BaseURL, cfg.Mail.From)
	if err != nil {
		return nil, err
	}
	mailer, err := notify.NewMailer(composer, transport, metrics, logger)
	if err != nil {
		return nil, err
	}

	service, err := auth.NewServiceWithLogger(accounts, auth.NewArgon2idHasher(), sessions, mailer, logger)
	if err != nil {
		return nil, err
	}

	renderer, err := web.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}

	cookies := web.CookieConfig{Secure: cfg.Web.CookieSecure, SameSite: cfg.CookieSameSite()}
	handlers, err := web.NewHandlers(service, sessions, renderer, cookies, metrics, logger)
	if err != nil {
		return nil, err
	}

	return web.NewRouter(handlers, web.RouterOptions{
		CSRFKey: cfg.CSRFSecret(),
		Cookies: cookies,
		Logger:  logger,
	}), nil
}

// openStore opens the configured account store. The postgres store waits
// for the database and reports readiness by pinging it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*AccountStore, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory account store; accounts are lost on restart")
		return &AccountStore{Accounts: memory.NewAccountRepository()}, nil
	case config.StorePostgres:
		pool, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{
			Attempts: uint64(cfg.Database.ConnectAttempts), //nolint:gosec // validated positive
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to database")
		return &AccountStore{
			Accounts: postgres.NewAccountRepository(pool),
			Ready:    pool.Ping,
			Close:    pool.Close,
		}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("store", cfg.Store).Errorf("unknown store %q", cfg.Store)
	}
}

// newTransport builds the configured mail transport.
func newTransport(cfg *config.Config, logger *slog.Logger) (notify.Transport, error) {
	switch cfg.Mail.Driver {
	case config.MailLog:
		return notify.NewLogTransport(logger), nil
	case config.MailSMTP:
		return notify.NewSMTPTransport(notify.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
		})
	case config.MailResend:
		return notify.NewResendTransport(notify.ResendConfig{
			APIKey:  cfg.Mail.Resend.APIKey,
			BaseURL: cfg.Mail.Resend.BaseURL,
		})
	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Mail.Driver).Errorf("unknown mail driver %q", cfg.Mail.Driver)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error is received, the channel is closed, or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
