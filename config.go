package auth

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
	"golang.org/x/text/language"
)

// Config is the process configuration, read from PONDANA_* variables.
type Config struct {
	SiteOrigin string `env:"PONDANA_SITE_ORIGIN" envDefault:"http://localhost:3000"`
	Addr       string `env:"PONDANA_ADDR"        envDefault:":3000"`
	Debug      bool   `env:"PONDANA_DEBUG"       envDefault:"false"`
	Language   string `env:"PONDANA_LANGUAGE"    envDefault:"ja"`

	SigningKey    string        `env:"PONDANA_SIGNING_KEY,notEmpty"`
	SigningKeyID  string        `env:"PONDANA_SIGNING_KEY_ID"   envDefault:"pondana-1"`
	Issuer        string        `env:"PONDANA_ISSUER"           envDefault:"pondana"`
	TokenTTL      time.Duration `env:"PONDANA_TOKEN_TTL"        envDefault:"1h"`
	RecoveryTTL   time.Duration `env:"PONDANA_RECOVERY_TTL"     envDefault:"1h"`
	EmailLinkTTL  time.Duration `env:"PONDANA_EMAIL_LINK_TTL"   envDefault:"24h"`
	SessionCookie string        `env:"PONDANA_SESSION_COOKIE"   envDefault:"pondana-auth"`
	SecureCookies bool          `env:"PONDANA_SECURE_COOKIES"   envDefault:"false"`

	DatabaseDSN         string        `env:"PONDANA_DATABASE_DSN"          envDefault:"file:pondana.db?cache=shared"`
	DatabasePingTimeout time.Duration `env:"PONDANA_DATABASE_PING_TIMEOUT" envDefault:"5s"`
	DatabaseOtelName    string        `env:"PONDANA_DATABASE_OTEL_NAME"`
	RedisAddr           string        `env:"PONDANA_REDIS_ADDR"            envDefault:"localhost:6379"`
	RedisPrefix         string        `env:"PONDANA_REDIS_PREFIX"          envDefault:"pondana"`

	EmailSendLimit   int           `env:"PONDANA_EMAIL_SEND_LIMIT"   envDefault:"3"`
	EmailSendWindow  time.Duration `env:"PONDANA_EMAIL_SEND_WINDOW"  envDefault:"1h"`
	SignInLimit      int           `env:"PONDANA_SIGN_IN_LIMIT"      envDefault:"10"`
	SignInWindow     time.Duration `env:"PONDANA_SIGN_IN_WINDOW"     envDefault:"5m"`
	DeterministicIDs bool          `env:"PONDANA_DETERMINISTIC_IDS"  envDefault:"false"`

	GoogleClientID     string `env:"PONDANA_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"PONDANA_GOOGLE_CLIENT_SECRET"`
	StateKey           string `env:"PONDANA_OAUTH_STATE_KEY"`
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to load configuration").
			WithTextCode("CONFIG_INVALID")
	}
	cfg.SiteOrigin = strings.TrimRight(cfg.SiteOrigin, "/")
	return cfg, nil
}

func (c *Config) GetSiteOrigin() string {
	return c.SiteOrigin
}

func (c *Config) GetSigningKey() string {
	return c.SigningKey
}

func (c *Config) GetSigningKeyID() string {
	return c.SigningKeyID
}

func (c *Config) GetIssuer() string {
	return c.Issuer
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.TokenTTL
}

func (c *Config) GetSessionCookie() string {
	return c.SessionCookie
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GetLanguage returns the configured default UI language.
func (c *Config) GetLanguage() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.Japanese
	}
	return tag
}

// Callbacks returns the callback link builder for the site origin.
func (c *Config) Callbacks() CallbackURLs {
	return NewCallbackURLs(c.SiteOrigin)
}

// CookieOptions returns the session cookie settings. Every handler that
// touches the session cookie must use these so a cleared cookie keeps its
// Secure flag.
func (c *Config) CookieOptions() CookieOptions {
	return CookieOptions{
		MaxAge:   c.TokenTTL,
		Secure:   c.SecureCookies,
		SameSite: "Lax",
	}
}

// Persistence exposes the database settings in the shape the bun
// persistence client reads them.
func (c *Config) Persistence() PersistenceConfig {
	return PersistenceConfig{
		Debug:          c.Debug,
		Driver:         "sqlite",
		Server:         c.DatabaseDSN,
		PingTimeout:    c.DatabasePingTimeout,
		OtelIdentifier: c.DatabaseOtelName,
	}
}

// PersistenceConfig is the database section of Config.
type PersistenceConfig struct {
	Debug          bool
	Driver         string
	Server         string
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (p PersistenceConfig) GetDebug() bool {
	return p.Debug
}

func (p PersistenceConfig) GetDriver() string {
	return p.Driver
}

func (p PersistenceConfig) GetServer() string {
	return p.Server
}

// GetDatabase is empty: the sqlite DSN already names the file.
func (p PersistenceConfig) GetDatabase() string {
	return ""
}

func (p PersistenceConfig) GetPingTimeout() time.Duration {
	if p.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return p.PingTimeout
}

func (p PersistenceConfig) GetOtelIdentifier() string {
	return p.OtelIdentifier
}
