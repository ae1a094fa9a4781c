// Package config loads process settings from defaults, an optional config file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvConfigFile = "STOREFRONT_CONFIG"

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendFile     Backend = "file"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
	BackendMongo    Backend = "mongo"
)

type Config struct {
	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	CatalogURL      string        `mapstructure:"CATALOG_URL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	StorageBackend Backend `mapstructure:"STORAGE_BACKEND"`
	StoragePath    string  `mapstructure:"STORAGE_PATH"`
	PostgresDSN    string  `mapstructure:"POSTGRES_DSN"`
	RedisAddr      string  `mapstructure:"REDIS_ADDR"`
	RedisPassword  string  `mapstructure:"REDIS_PASSWORD"`
	MongoURI       string  `mapstructure:"MONGO_URI"`
	MongoDBName    string  `mapstructure:"MONGO_DB_NAME"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	OrdersTopic  string `mapstructure:"ORDERS_TOPIC"`

	HydrateConcurrency int           `mapstructure:"HYDRATE_CONCURRENCY"`
	BreakerMaxFailures uint32        `mapstructure:"BREAKER_MAX_FAILURES"`
	BreakerOpenTimeout time.Duration `mapstructure:"BREAKER_OPEN_TIMEOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
}

var defaults = map[string]interface{}{
	"HTTP_PORT":            "8080",
	"CATALOG_URL":          "",
	"REQUEST_TIMEOUT":      "30s",
	"SHUTDOWN_TIMEOUT":     "10s",
	"STORAGE_BACKEND":      string(BackendFile),
	"STORAGE_PATH":         "./data",
	"POSTGRES_DSN":         "",
	"REDIS_ADDR":           "",
	"REDIS_PASSWORD":       "",
	"MONGO_URI":            "",
	"MONGO_DB_NAME":        "storefront",
	"KAFKA_BROKERS":        "",
	"ORDERS_TOPIC":         "storefront-orders",
	"HYDRATE_CONCURRENCY":  8,
	"BREAKER_MAX_FAILURES": 5,
	"BREAKER_OPEN_TIMEOUT": "30s",
	"LOG_LEVEL":            "info",
	"LOG_PRETTY":           false,
}

// Load reads configuration. path may be empty, in which case STOREFRONT_CONFIG is consulted;
// with neither set only defaults and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.StorageBackend = Backend(strings.ToLower(string(cfg.StorageBackend)))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.CatalogURL == "" {
		errs = append(errs, errors.New("CATALOG_URL is required"))
	}
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("HTTP_PORT is required"))
	}
	if c.HydrateConcurrency < 1 {
		errs = append(errs, errors.New("HYDRATE_CONCURRENCY must be at least 1"))
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.StoragePath == "" {
			errs = append(errs, fmt.Errorf("STORAGE_PATH is required for the %s backend", c.StorageBackend))
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case BackendMongo:
		if c.MongoURI == "" || c.MongoDBName == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DB_NAME are required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	return errors.Join(errs...)
}

// Brokers splits KAFKA_BROKERS. An empty result disables order event publishing.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
