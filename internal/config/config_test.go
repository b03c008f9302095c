// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package config

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bienesraices/bienesraices/pkg/errutil"
)

func env(vals map[string]string) func(string) string {
	return func(key string) string { return vals[key] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithEnvironment(t *testing.T) {
	cfg, err := Load(LoadOptions{Getenv: env(map[string]string{
		EnvDatabaseURL:   "postgres://localhost/bienesraices",
		EnvSessionSecret: "s3cret",
	})})
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, ":3000", cfg.Web.Addr)
	assert.Equal(t, "http://localhost:3000", cfg.Web.BaseURL)
	assert.Equal(t, "postgres://localhost/bienesraices", cfg.Database.URL)
	assert.Equal(t, 5, cfg.Database.ConnectAttempts)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, "bienesraices", cfg.Session.Issuer)
	assert.Equal(t, MailLog, cfg.Mail.Driver)
	assert.Equal(t, 587, cfg.Mail.SMTP.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Web.CookieSecure)
	assert.Equal(t, http.SameSite(0), cfg.CookieSameSite())
	assert.Equal(t, "csrf:s3cret", cfg.CSRFSecret())
}

func TestLoad_MissingSecrets(t *testing.T) {
	_, err := Load(LoadOptions{Getenv: env(nil)})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Contains(t, err.Error(), "database.url is required")
	assert.Contains(t, err.Error(), "session.secret is required")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
store: memory
web:
  addr: "127.0.0.1:8080"
  base_url: "https://bienesraices.example"
  cookie_secure: true
  cookie_same_site: strict
  csrf_key: "csrf"
session:
  secret: "from-file"
  ttl: "2h"
mail:
  driver: smtp
  from: "Cuentas <cuentas@bienesraices.example>"
  smtp:
    host: smtp.example.com
    port: 2525
`)

	cfg, err := Load(LoadOptions{Path: path, Getenv: env(map[string]string{EnvSessionSecret: "from-env"})})
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "127.0.0.1:8080", cfg.Web.Addr)
	assert.Equal(t, "https://bienesraices.example", cfg.Web.BaseURL)
	assert.True(t, cfg.Web.CookieSecure)
	assert.Equal(t, http.SameSiteStrictMode, cfg.CookieSameSite())
	assert.Equal(t, "csrf", cfg.Web.CSRFKey)
	assert.Equal(t, "from-file", cfg.Session.Secret, "environment only fills empty values")
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL())
	assert.Equal(t, MailSMTP, cfg.Mail.Driver)
	assert.Equal(t, "smtp.example.com", cfg.Mail.SMTP.Host)
	assert.Equal(t, 2525, cfg.Mail.SMTP.Port)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
store: memory
web:
  addr: "127.0.0.1:8080"
log:
  format: text
`)

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", "0.0.0.0:9000", "--log-level", "debug"}))

	cfg, err := Load(LoadOptions{
		Path:   path,
		Flags:  fs,
		Getenv: env(map[string]string{EnvSessionSecret: "s"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Web.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unchanged flag defaults do not override the file")
	assert.Equal(t, StoreMemory, cfg.Store)
}

func TestLoad_DatabaseURLFlag(t *testing.T) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--database-url", "postgres://flag/db"}))

	cfg, err := Load(LoadOptions{
		Flags: fs,
		Getenv: env(map[string]string{
			EnvDatabaseURL:   "postgres://env/db",
			EnvSessionSecret: "s",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/db", cfg.Database.URL)
}

func TestLoad_SchemaRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
web:
  adress: ":3000"
`)

	_, err := Load(LoadOptions{Path: path, Getenv: env(nil)})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_VIOLATION")
}

func TestLoad_SchemaRejectsBadEnum(t *testing.T) {
	path := writeConfig(t, "mail:\n  driver: carrier-pigeon\n")

	_, err := Load(LoadOptions{Path: path, Getenv: env(nil)})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_VIOLATION")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")
}

func validConfig() Config {
	return Config{
		Store:    StoreMemory,
		Web:      WebConfig{Addr: ":3000", BaseURL: "http://localhost:3000"},
		Database: DatabaseConfig{ConnectAttempts: 5},
		Session:  SessionConfig{Secret: "s", TTL: "24h"},
		Mail:     MailConfig{Driver: MailLog, From: "a@b.c"},
		Log:      LogConfig{Format: "json", Level: "info"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown store", func(c *Config) { c.Store = "mysql" }, "store must be memory or postgres"},
		{"postgres without url", func(c *Config) { c.Store = StorePostgres }, "database.url is required"},
		{"postgres without attempts", func(c *Config) {
			c.Store = StorePostgres
			c.Database = DatabaseConfig{URL: "postgres://x"}
		}, "database.connect_attempts"},
		{"relative base url", func(c *Config) { c.Web.BaseURL = "/auth" }, "web.base_url"},
		{"bad same site", func(c *Config) { c.Web.CookieSameSite = "sometimes" }, "web.cookie_same_site"},
		{"bad ttl", func(c *Config) { c.Session.TTL = "a day" }, "session.ttl"},
		{"negative ttl", func(c *Config) { c.Session.TTL = "-1h" }, "session.ttl"},
		{"smtp without host", func(c *Config) { c.Mail.Driver = MailSMTP }, "mail.smtp.host"},
		{"resend without key", func(c *Config) { c.Mail.Driver = MailResend }, "mail.resend.api_key"},
		{"unknown driver", func(c *Config) { c.Mail.Driver = "fax" }, "mail.driver"},
		{"missing from", func(c *Config) { c.Mail.From = "" }, "mail.from"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_CSRFSecret(t *testing.T) {
	cfg := validConfig()
	derived := cfg.CSRFSecret()
	assert.NotEmpty(t, derived)
	assert.NotEqual(t, cfg.Session.Secret, derived)

	cfg.Web.CSRFKey = "explicit"
	assert.Equal(t, "explicit", cfg.CSRFSecret())
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, SchemaID, schema["$id"])
	assert.Equal(t, "BienesRaices Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"store", "web", "database", "session", "mail", "metrics", "log"} {
		assert.Contains(t, props, key)
	}
}

func TestValidateSchema(t *testing.T) {
	assert.NoError(t, ValidateSchema(nil))
	assert.NoError(t, ValidateSchema([]byte("# only a comment\n")))
	assert.NoError(t, ValidateSchema([]byte("store: memory\nmail:\n  smtp:\n    port: 25\n")))

	err := ValidateSchema([]byte("store: [unclosed"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_YAML_INVALID")

	err = ValidateSchema([]byte("mail:\n  smtp:\n    port: 70000\n"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_VIOLATION")
}
