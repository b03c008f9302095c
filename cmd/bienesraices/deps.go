// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bienesraices/bienesraices/internal/auth"
	"github.com/bienesraices/bienesraices/internal/config"
	"github.com/bienesraices/bienesraices/internal/notify"
	"github.com/bienesraices/bienesraices/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreFactory opens the account store selected by cfg.Store.
	// Default: openStore
	StoreFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*AccountStore, error)

	// TransportFactory builds the mail transport selected by cfg.Mail.Driver.
	// Default: newTransport
	TransportFactory func(cfg *config.Config, logger *slog.Logger) (notify.Transport, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// WebServerFactory creates the public web server.
	// Default: web.NewServer
	WebServerFactory func(addr string, handler http.Handler, logger *slog.Logger) WebServer

	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(string) string

	// OnReady is called with the bound web address once serving starts.
	OnReady func(webAddr string)
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory creates a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(string) string
}

// AccountStore is an opened account repository with its lifecycle hooks.
type AccountStore struct {
	Accounts auth.AccountRepository
	// Ready reports whether the store can serve traffic. Nil means always.
	Ready observability.ReadinessChecker
	// Close releases the store. Nil means nothing to release.
	Close func()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// WebServer interface wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}
