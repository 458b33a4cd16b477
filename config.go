package accounts

import (
	"time"

	env "github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig is the concrete Config implementation, populated from the
// environment. It is constructed once at process start and passed
// explicitly into each component's constructor.
type EnvConfig struct {
	HTTPAddr           string        `env:"ACCOUNTS_HTTP_ADDR" envDefault:":8080"`
	DSN                string        `env:"ACCOUNTS_DSN" envDefault:"file::memory:?cache=shared"`
	SigningKey         string        `env:"ACCOUNTS_SIGNING_KEY" envDefault:"secret"`
	Issuer             string        `env:"ACCOUNTS_ISSUER" envDefault:"go-accounts"`
	Audience           []string      `env:"ACCOUNTS_AUDIENCE" envSeparator:","`
	AccessTokenTTL     time.Duration `env:"ACCOUNTS_ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTokenTTL    time.Duration `env:"ACCOUNTS_REFRESH_TOKEN_TTL" envDefault:"168h"`
	Timezone           string        `env:"ACCOUNTS_TIMEZONE" envDefault:"UTC"`
	UnverifiedLifetime time.Duration `env:"ACCOUNTS_UNVERIFIED_LIFETIME" envDefault:"48h"`
	SweepHour          int           `env:"ACCOUNTS_SWEEP_HOUR" envDefault:"0"`
	SweepMinute        int           `env:"ACCOUNTS_SWEEP_MINUTE" envDefault:"0"`
	AMQPURL            string        `env:"ACCOUNTS_AMQP_URL"`
	AMQPQueue          string        `env:"ACCOUNTS_AMQP_QUEUE" envDefault:"account.verification"`

	location *time.Location
}

// LoadConfig parses the environment and resolves the configured timezone
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse environment configuration")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid timezone").
			WithMetadata(map[string]any{"timezone": cfg.Timezone})
	}
	cfg.location = loc

	return cfg, nil
}

var _ Config = (*EnvConfig)(nil)

func (c *EnvConfig) GetSigningKey() string { return c.SigningKey }

func (c *EnvConfig) GetIssuer() string { return c.Issuer }

func (c *EnvConfig) GetAudience() []string { return c.Audience }

func (c *EnvConfig) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

func (c *EnvConfig) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

func (c *EnvConfig) GetLocation() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *EnvConfig) GetUnverifiedLifetime() time.Duration { return c.UnverifiedLifetime }

func (c *EnvConfig) GetSweepHour() int { return c.SweepHour }

func (c *EnvConfig) GetSweepMinute() int { return c.SweepMinute }
