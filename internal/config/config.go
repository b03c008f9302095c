// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

// Package config loads server configuration from defaults, an optional YAML
// file and command-line flags, in that order of precedence.
package config

import (
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/bienesraices/bienesraices/internal/logging"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Mail drivers.
const (
	MailLog    = "log"
	MailSMTP   = "smtp"
	MailResend = "resend"
)

// Environment variables that fill empty values after loading.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvSessionSecret = "SESSION_SECRET"
)

// Config is the complete server configuration.
type Config struct {
	Store    string         `koanf:"store" json:"store,omitempty" jsonschema:"enum=memory,enum=postgres,description=Account storage backend"`
	Web      WebConfig      `koanf:"web" json:"web,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Session  SessionConfig  `koanf:"session" json:"session,omitempty"`
	Mail     MailConfig     `koanf:"mail" json:"mail,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
}

// WebConfig configures the public HTTP listener.
type WebConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Listen address (host:port)"`
	// BaseURL prefixes the links sent by email.
	BaseURL        string `koanf:"base_url" json:"base_url,omitempty" jsonschema:"format=uri"`
	CSRFKey        string `koanf:"csrf_key" json:"csrf_key,omitempty" jsonschema:"description=Signs CSRF tokens; derived from session.secret when unset"`
	CookieSecure   bool   `koanf:"cookie_secure" json:"cookie_secure,omitempty"`
	CookieSameSite string `koanf:"cookie_same_site" json:"cookie_same_site,omitempty" jsonschema:"enum=,enum=lax,enum=strict,enum=none"`
}

// DatabaseConfig configures the PostgreSQL store.
type DatabaseConfig struct {
	URL             string `koanf:"url" json:"url,omitempty"`
	ConnectAttempts int    `koanf:"connect_attempts" json:"connect_attempts,omitempty" jsonschema:"minimum=1"`
}

// SessionConfig configures session token signing.
type SessionConfig struct {
	Secret string `koanf:"secret" json:"secret,omitempty"`
	// TTL is a Go duration string such as "24h".
	TTL    string `koanf:"ttl" json:"ttl,omitempty"`
	Issuer string `koanf:"issuer" json:"issuer,omitempty"`
}

// MailConfig configures notification delivery.
type MailConfig struct {
	Driver string       `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=log,enum=smtp,enum=resend"`
	From   string       `koanf:"from" json:"from,omitempty"`
	SMTP   SMTPConfig   `koanf:"smtp" json:"smtp,omitempty"`
	Resend ResendConfig `koanf:"resend" json:"resend,omitempty"`
}

// SMTPConfig configures the SMTP driver.
type SMTPConfig struct {
	Host     string `koanf:"host" json:"host,omitempty"`
	Port     int    `koanf:"port" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"password,omitempty"`
}

// ResendConfig configures the Resend driver.
type ResendConfig struct {
	APIKey  string `koanf:"api_key" json:"api_key,omitempty"`
	BaseURL string `koanf:"base_url" json:"base_url,omitempty"`
}

// MetricsConfig configures the observability listener.
type MetricsConfig struct {
	// Addr disables the listener when empty.
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

var defaults = map[string]any{
	"store":                     StorePostgres,
	"web.addr":                  ":3000",
	"web.base_url":              "http://localhost:3000",
	"web.cookie_secure":         false,
	"web.cookie_same_site":      "",
	"database.connect_attempts": 5,
	"session.ttl":               "24h",
	"session.issuer":            "bienesraices",
	"mail.driver":               MailLog,
	"mail.from":                 "BienesRaices.com <cuentas@bienesraices.com>",
	"mail.smtp.port":            587,
	"metrics.addr":              "127.0.0.1:9100",
	"log.format":                "json",
	"log.level":                 "info",
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"addr":         "web.addr",
	"base-url":     "web.base_url",
	"store":        "store",
	"database-url": "database.url",
	"mail-driver":  "mail.driver",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// RegisterFlags adds the config flags to fs. Their defaults only apply to
// keys nothing else has set.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", defaults["web.addr"].(string), "web listen address")
	fs.String("base-url", defaults["web.base_url"].(string), "public base URL used in emailed links")
	fs.String("store", defaults["store"].(string), "account store (postgres or memory)")
	fs.String("database-url", "", "PostgreSQL connection string (default $DATABASE_URL)")
	fs.String("mail-driver", defaults["mail.driver"].(string), "mail driver (log, smtp or resend)")
	fs.String("metrics-addr", defaults["metrics.addr"].(string), "metrics and health listen address, empty to disable")
	fs.String("log-format", defaults["log.format"].(string), "log format (json or text)")
	fs.String("log-level", defaults["log.level"].(string), "log level (debug, info, warn, error)")
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Path is an optional YAML file.
	Path string
	// Flags are applied over the file when set.
	Flags *pflag.FlagSet
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds and validates a Config.
func Load(opts LoadOptions) (*Config, error) {
	cfg, err := Read(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds a Config without validating it. Commands that need only part
// of the configuration check what they use.
func Read(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", opts.Path).Wrap(err)
		}
		if err := ValidateSchema(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").With("path", opts.Path).Wrap(err)
		}
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", opts.Path).Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = getenv(EnvDatabaseURL)
	}
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = getenv(EnvSessionSecret)
	}
	return &cfg, nil
}

// Validate reports every missing or malformed value at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(problem string) { problems = append(problems, problem) }

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			add("database.url is required for the postgres store (or set " + EnvDatabaseURL + ")")
		}
		if c.Database.ConnectAttempts < 1 {
			add("database.connect_attempts must be at least 1")
		}
	default:
		add("store must be memory or postgres")
	}

	if c.Web.Addr == "" {
		add("web.addr is required")
	}
	if u, err := url.Parse(c.Web.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("web.base_url must be an absolute http(s) URL")
	}
	if _, ok := sameSiteModes[strings.ToLower(c.Web.CookieSameSite)]; !ok {
		add("web.cookie_same_site must be lax, strict or none")
	}

	if c.Session.Secret == "" {
		add("session.secret is required (or set " + EnvSessionSecret + ")")
	}
	if ttl, err := time.ParseDuration(c.Session.TTL); err != nil || ttl <= 0 {
		add("session.ttl must be a positive duration")
	}

	if c.Mail.From == "" {
		add("mail.from is required")
	}
	switch c.Mail.Driver {
	case MailLog:
	case MailSMTP:
		if c.Mail.SMTP.Host == "" {
			add("mail.smtp.host is required for the smtp driver")
		}
	case MailResend:
		if c.Mail.Resend.APIKey == "" {
			add("mail.resend.api_key is required for the resend driver")
		}
	default:
		add("mail.driver must be log, smtp or resend")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		add("log.format must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level must be debug, info, warn or error")
	}

	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", problems).
			Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

var sameSiteModes = map[string]http.SameSite{
	"":       0,
	"lax":    http.SameSiteLaxMode,
	"strict": http.SameSiteStrictMode,
	"none":   http.SameSiteNoneMode,
}

// SessionTTL returns the parsed session lifetime, or zero if it is invalid.
func (c *Config) SessionTTL() time.Duration {
	ttl, err := time.ParseDuration(c.Session.TTL)
	if err != nil {
		return 0
	}
	return ttl
}

// CSRFSecret returns the key that signs CSRF tokens. Without web.csrf_key it
// is derived from the session secret, so protection is never off.
func (c *Config) CSRFSecret() string {
	if c.Web.CSRFKey != "" {
		return c.Web.CSRFKey
	}
	return "csrf:" + c.Session.Secret
}

// CookieSameSite returns the SameSite mode for the session cookie.
func (c *Config) CookieSameSite() http.SameSite {
	return sameSiteModes[strings.ToLower(c.Web.CookieSameSite)]
}
