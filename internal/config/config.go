package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/utafrali/inventory-es/pkg/config"
	"github.com/utafrali/inventory-es/pkg/database"
)

// Storage backend selectors.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Cache backend selectors.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the full service configuration, loaded from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP    HTTPConfig
	Storage StorageConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Breaker BreakerConfig

	Postgres PostgresConfig
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// StorageConfig selects and configures the event store backend.
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND" envDefault:"file"`
	Dir     string `env:"STORAGE_DIR" envDefault:"./data"`
}

// CacheConfig selects and configures the read-side cache.
type CacheConfig struct {
	Backend         string        `env:"CACHE_BACKEND" envDefault:"memory"`
	TTL             time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	MaxSize         int           `env:"CACHE_MAX_SIZE" envDefault:"10000"`
	CleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL" envDefault:"1m"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// KafkaConfig configures the optional event relay.
type KafkaConfig struct {
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
}

// BreakerConfig configures the circuit breaker guarding the Kafka relay.
type BreakerConfig struct {
	FailureThreshold uint32        `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	Timeout          time.Duration `env:"BREAKER_TIMEOUT" envDefault:"60s"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"inventory"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"inventory_secret"`
	DBName   string `env:"POSTGRES_DB" envDefault:"inventory"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	MaxConns int32 `env:"POSTGRES_MAX_CONNS" envDefault:"25"`
	MinConns int32 `env:"POSTGRES_MIN_CONNS" envDefault:"5"`
}

// Pool converts to the database package's pool configuration.
func (c *PostgresConfig) Pool() *database.PostgresConfig {
	cfg := database.DefaultPostgresConfig()
	cfg.Host = c.Host
	cfg.Port = c.Port
	cfg.User = c.User
	cfg.Password = c.Password
	cfg.DBName = c.DBName
	cfg.SSLMode = c.SSLMode
	cfg.MaxConns = c.MaxConns
	cfg.MinConns = c.MinConns
	return &cfg
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the app cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageFile, StoragePostgres:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q: must be %q or %q",
			c.Storage.Backend, StorageFile, StoragePostgres)
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q: must be %q or %q",
			c.Cache.Backend, CacheMemory, CacheRedis)
	}

	if c.Storage.Backend == StorageFile && strings.TrimSpace(c.Storage.Dir) == "" {
		return fmt.Errorf("STORAGE_DIR must not be empty with the file backend")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTP.Port)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty when KAFKA_ENABLED is true")
	}
	return nil
}

// IsProduction reports whether the service runs with the production profile.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
