package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Roles      RolesConfig
	Routes     RoutesConfig
	Federation FederationConfig
	Login      LoginConfig
	Profile    ProfileConfig

	Mongo MongoConfig
	Redis RedisConfig
}

type RolesConfig struct {
	SuperAdminEmail string   `env:"SUPER_ADMIN_EMAIL"`
	OrgDomains      []string `env:"ORG_DOMAINS"`
}

type RoutesConfig struct {
	Login string `env:"LOGIN_ROUTE, default=/login"`
	Home  string `env:"HOME_ROUTE,  default=/"`
}

type FederationConfig struct {
	Secret string `env:"FEDERATION_SECRET"`
	Issuer string `env:"FEDERATION_ISSUER"`
}

type LoginConfig struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS, default=5"`
	Window      time.Duration `env:"LOGIN_WINDOW,       default=15m"`
}

type ProfileConfig struct {
	Timeout      time.Duration `env:"PROFILE_TIMEOUT,       default=5s"`
	Retries      int           `env:"PROFILE_RETRIES,       default=2"`
	RetryBackoff time.Duration `env:"PROFILE_RETRY_BACKOFF, default=200ms"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=recruiting"`
}

// RedisConfig is optional; an empty address selects the in-process login limiter.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads a .env file when present, then the environment, using
// go-envconfig. It panics on invalid configuration.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Process(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// Process decodes and validates the configuration from l.
func Process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Roles.SuperAdminEmail != "" && strings.Count(c.Roles.SuperAdminEmail, "@") != 1 {
		return fmt.Errorf("SUPER_ADMIN_EMAIL %q is not an email address", c.Roles.SuperAdminEmail)
	}
	if c.Login.MaxAttempts <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive, got %d", c.Login.MaxAttempts)
	}
	if c.Profile.Retries < 0 {
		return fmt.Errorf("PROFILE_RETRIES must not be negative, got %d", c.Profile.Retries)
	}
	if c.Profile.Timeout <= 0 {
		return fmt.Errorf("PROFILE_TIMEOUT must be positive, got %s", c.Profile.Timeout)
	}
	if !strings.HasPrefix(c.Routes.Login, "/") || !strings.HasPrefix(c.Routes.Home, "/") {
		return fmt.Errorf("LOGIN_ROUTE and HOME_ROUTE must be absolute paths")
	}
	return nil
}
