// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

//go:build integration

// Package auth_test drives the account pages end to end against PostgreSQL.
package auth_test

import (
	"context"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bienesraices/bienesraices/internal/auth"
	authpg "github.com/bienesraices/bienesraices/internal/auth/postgres"
	"github.com/bienesraices/bienesraices/internal/store"
	"github.com/bienesraices/bienesraices/internal/web"
)

func TestAuthIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Integration Suite")
}

// testEnv holds all resources needed for the auth integration tests.
type testEnv struct {
	ctx       context.Context
	pool      *pgxpool.Pool
	container testcontainers.Container
	connStr   string
}

var env *testEnv

var _ = BeforeSuite(func() {
	var err error
	env, err = setupTestEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if env != nil {
		env.cleanup()
	}
})

func setupTestEnv() (*testEnv, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("bienesraices_test"),
		postgres.WithUsername("bienesraices"),
		postgres.WithPassword("bienesraices"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	err = migrator.Up()
	_ = migrator.Close()
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	pool, err := store.Connect(ctx, connStr, store.ConnectOptions{})
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &testEnv{
		ctx:       ctx,
		pool:      pool,
		container: container,
		connStr:   connStr,
	}, nil
}

func (e *testEnv) cleanup() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(e.ctx)
	}
}

func (e *testEnv) truncate() {
	_, err := e.pool.Exec(e.ctx, "TRUNCATE accounts")
	Expect(err).NotTo(HaveOccurred())
}

// outbox records notifications so specs can follow the emailed links.
type outbox struct {
	mu   sync.Mutex
	sent []auth.Notification
}

func (o *outbox) Send(_ context.Context, _ auth.NotificationKind, n auth.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, n)
	return nil
}

func (o *outbox) lastToken() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	Expect(o.sent).NotTo(BeEmpty())
	return o.sent[len(o.sent)-1].Token
}

// site is the full router backed by the PostgreSQL account repository.
type site struct {
	router      http.Handler
	outbox      *outbox
	csrfCookies []*http.Cookie
	csrfToken   string
}

var csrfInput = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func newSite() *site {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &site{outbox: &outbox{}}

	sessions, err := auth.NewSessionIssuer(auth.SessionConfig{Secret: []byte("integration-secret")})
	Expect(err).NotTo(HaveOccurred())

	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2idParams{
		Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32,
	})
	svc, err := auth.NewServiceWithLogger(authpg.NewAccountRepository(env.pool), hasher, sessions, s.outbox, logger)
	Expect(err).NotTo(HaveOccurred())

	renderer, err := web.NewTemplateRenderer()
	Expect(err).NotTo(HaveOccurred())

	handlers, err := web.NewHandlers(svc, sessions, renderer, web.CookieConfig{}, nil, logger)
	Expect(err).NotTo(HaveOccurred())

	s.router = web.NewRouter(handlers, web.RouterOptions{CSRFKey: "integration-csrf", Logger: logger})

	rec := s.get("/auth/login")
	Expect(rec.Code).To(Equal(http.StatusOK))
	match := csrfInput.FindStringSubmatch(rec.Body.String())
	Expect(match).To(HaveLen(2))
	s.csrfToken = html.UnescapeString(match[1])
	s.csrfCookies = rec.Result().Cookies()
	return s
}

func (s *site) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *site) post(path string, form url.Values) *httptest.ResponseRecorder {
	withToken := url.Values{"_csrf": {s.csrfToken}}
	for k, v := range form {
		withToken[k] = v
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(withToken.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range s.csrfCookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == web.SessionCookieName {
			return c
		}
	}
	return nil
}
