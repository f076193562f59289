package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const minSecretBytes = 32

// Role sources.
const (
	RoleSourceToken = "token"
	RoleSourceStore = "store"
)

// Store backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

var defaultPublicRoutes = []string{
	"/api/v1/users/register",
	"/api/v1/auth/login",
	"/health",
	"/health/ready",
	"/metrics",
	"/swagger/**",
}

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	// PublicRoutes replaces the default allow-list when set.
	PublicRoutes []string      `env:"PUBLIC_ROUTES"`
	RoleSource   string        `env:"ROLE_SOURCE,    default=store"`
	RoleCacheTTL time.Duration `env:"ROLE_CACHE_TTL, default=30s"`

	JWT   JWTConfig
	Hash  HashConfig
	Store StoreConfig
	Mongo MongoConfig
	Pg    PostgresConfig
	Redis RedisConfig

	// Populated by Validate from JWT.Secret.
	SigningKey []byte
}

type JWTConfig struct {
	// Secret is the base64-encoded HMAC key.
	Secret string        `env:"JWT_SECRET"`
	TTL    time.Duration `env:"JWT_TTL,    default=4h"`
	Leeway time.Duration `env:"JWT_LEEWAY, default=0s"`
}

type HashConfig struct {
	Algorithm     string `env:"HASH_ALGORITHM, default=bcrypt"`
	BcryptCost    int    `env:"BCRYPT_COST,    default=10"`
	Argon2Time    uint32 `env:"ARGON2_TIME,    default=1"`
	Argon2Memory  uint32 `env:"ARGON2_MEMORY,  default=65536"`
	Argon2Threads uint8  `env:"ARGON2_THREADS, default=4"`
	Workers       int    `env:"HASH_WORKERS,   default=0"`
}

type StoreConfig struct {
	Backend string `env:"STORE_BACKEND, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type PostgresConfig struct {
	URL string `env:"DATABASE_URL"`
}

type RedisConfig struct {
	// Addr empty disables the role cache.
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// Load reads configuration from environment variables and validates it.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum values and decodes the signing key.
func (c *Config) Validate() error {
	var errs []error

	key, err := decodeSecret(c.JWT.Secret)
	if err != nil {
		errs = append(errs, err)
	}
	c.SigningKey = key

	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.JWT.Leeway < 0 {
		errs = append(errs, errors.New("JWT_LEEWAY must not be negative"))
	}

	switch c.RoleSource {
	case RoleSourceToken, RoleSourceStore:
	default:
		errs = append(errs, fmt.Errorf("ROLE_SOURCE %q must be token or store", c.RoleSource))
	}

	switch c.Store.Backend {
	case BackendMongo, BackendMemory:
	case BackendPostgres:
		if c.Pg.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q must be mongo, postgres or memory", c.Store.Backend))
	}

	if c.Hash.Workers < 0 {
		errs = append(errs, errors.New("HASH_WORKERS must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Routes returns the public allow-list, falling back to the defaults.
func (c *Config) Routes() []string {
	var out []string
	for _, r := range c.PublicRoutes {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultPublicRoutes...)
	}
	return out
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func decodeSecret(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if key, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err != nil {
			return nil, errors.New("JWT_SECRET must be base64 encoded")
		}
	}
	if len(key) < minSecretBytes {
		return nil, fmt.Errorf("JWT_SECRET must decode to at least %d bytes, got %d", minSecretBytes, len(key))
	}
	return key, nil
}
