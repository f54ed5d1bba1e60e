package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Token     TokenConfig
	Root      RootConfig
	Processor ProcessorConfig
	Store     StoreConfig
	Mongo     MongoConfig
	Redis     RedisConfig

	// HashCost is the bcrypt cost for signups and password changes.
	HashCost int `env:"HASH_COST, default=12"`
}

type TokenConfig struct {
	Key      string        `env:"TOKEN_KEY, required"`
	Issuer   string        `env:"TOKEN_ISSUER,   default=XApps"`
	Validity time.Duration `env:"TOKEN_VALIDITY, default=24h"`
}

// RootConfig describes the administrator seeded into an empty store.
type RootConfig struct {
	Email      string `env:"ROOT_EMAIL,       default=root@localhost"`
	Password   string `env:"ROOT_PASSWORD,    required"`
	FirstName  string `env:"ROOT_FIRST_NAME,  default=Root"`
	LastName   string `env:"ROOT_LAST_NAME,   default=Administrator"`
	HashRounds int    `env:"ROOT_HASH_ROUNDS, default=10"`
}

type ProcessorConfig struct {
	Timeout time.Duration `env:"PROCESSOR_TIMEOUT, default=5s"`
	Mailbox int           `env:"PROCESSOR_MAILBOX, default=64"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=users"`
}

// RedisConfig enables the user cache when Addr is set.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	DB       int           `env:"REDIS_DB,        default=0"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL, default=5m"`
}

// IsDevelopment reports whether ENV selects the development profile.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// CacheEnabled reports whether a Redis address was configured.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != ""
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith resolves configuration from lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Token.Key == "" {
		return errors.New("TOKEN_KEY must not be empty")
	}
	if c.Root.Password == "" {
		return errors.New("ROOT_PASSWORD must not be empty")
	}
	switch c.Store.Driver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store.Driver)
	}
	if c.Token.Validity <= 0 {
		return errors.New("TOKEN_VALIDITY must be positive")
	}
	if c.Processor.Timeout <= 0 {
		return errors.New("PROCESSOR_TIMEOUT must be positive")
	}
	return nil
}
