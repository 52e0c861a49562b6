package session

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// Environment variable names consumed by LoadConfig.
const (
	EnvAccessTokenSecret  = "ACCESS_TOKEN_SECRET"
	EnvAccessTokenExpiry  = "ACCESS_TOKEN_EXPIRY"
	EnvRefreshTokenSecret = "REFRESH_TOKEN_SECRET"
	EnvRefreshTokenExpiry = "REFRESH_TOKEN_EXPIRY"
)

// BaseConfig is the immutable startup configuration. Secrets and TTLs are
// required; a missing value is a fatal configuration error at process start,
// never a per-request failure.
type BaseConfig struct {
	AccessSigningKey  string
	AccessTokenTTL    time.Duration
	RefreshSigningKey string
	RefreshTokenTTL   time.Duration
	Issuer            string
	Audience          []string
	ContextKey        string
	TokenLookup       string
	AuthScheme        string
	AccessCookieName  string
	RefreshCookieName string
}

var _ Config = (*BaseConfig)(nil)

// LoadConfig reads the configuration from the environment via getenv and
// applies defaults for everything but the secrets.
func LoadConfig(getenv func(string) string) (*BaseConfig, error) {
	cfg := &BaseConfig{
		AccessSigningKey:  getenv(EnvAccessTokenSecret),
		RefreshSigningKey: getenv(EnvRefreshTokenSecret),
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   240 * time.Hour,
	}

	if raw := getenv(EnvAccessTokenExpiry); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryValidation, "invalid access token expiry").
				WithMetadata(map[string]any{"value": raw})
		}
		cfg.AccessTokenTTL = ttl
	}

	if raw := getenv(EnvRefreshTokenExpiry); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryValidation, "invalid refresh token expiry").
				WithMetadata(map[string]any{"value": raw})
		}
		cfg.RefreshTokenTTL = ttl
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid session configuration")
	}

	return cfg, nil
}

func (c *BaseConfig) applyDefaults() {
	if c.ContextKey == "" {
		c.ContextKey = "user"
	}
	if c.AccessCookieName == "" {
		c.AccessCookieName = "access_token"
	}
	if c.RefreshCookieName == "" {
		c.RefreshCookieName = "refresh_token"
	}
	if c.TokenLookup == "" {
		// Cookie before header: the observed client convention.
		c.TokenLookup = "cookie:" + c.AccessCookieName + ",header:Authorization"
	}
	if c.AuthScheme == "" {
		c.AuthScheme = "Bearer"
	}
}

// Validate will run validation rules
func (c BaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AccessSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.RefreshSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.AccessTokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.RefreshTokenTTL, validation.Required, validation.Min(time.Hour)),
	)
}

func (c *BaseConfig) GetAccessSigningKey() string {
	return c.AccessSigningKey
}

func (c *BaseConfig) GetAccessTokenTTL() time.Duration {
	return c.AccessTokenTTL
}

func (c *BaseConfig) GetRefreshSigningKey() string {
	return c.RefreshSigningKey
}

func (c *BaseConfig) GetRefreshTokenTTL() time.Duration {
	return c.RefreshTokenTTL
}

func (c *BaseConfig) GetIssuer() string {
	return c.Issuer
}

func (c *BaseConfig) GetAudience() []string {
	return c.Audience
}

func (c *BaseConfig) GetContextKey() string {
	return c.ContextKey
}

func (c *BaseConfig) GetTokenLookup() string {
	return c.TokenLookup
}

func (c *BaseConfig) GetAuthScheme() string {
	return c.AuthScheme
}

func (c *BaseConfig) GetAccessCookieName() string {
	return c.AccessCookieName
}

func (c *BaseConfig) GetRefreshCookieName() string {
	return c.RefreshCookieName
}
