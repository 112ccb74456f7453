package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable, e.g. PRICECHECK_HTTP_ADDR.
const Prefix = "pricecheck"

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Background process
	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"`
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"memory"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	Redis          RedisConfig

	// PriceEmpire upstream
	PriceEmpireURL     string        `envconfig:"PRICEEMPIRE_URL" default:"https://api.pricempire.com/v4/paid/items/prices"`
	PriceEmpireTimeout time.Duration `envconfig:"PRICEEMPIRE_TIMEOUT" default:"60s"`
	FetchInterval      time.Duration `envconfig:"FETCH_INTERVAL" default:"30m"`

	// Foreground scanner
	ScannerAddr   string `envconfig:"SCANNER_ADDR" default:":8090"`
	BackgroundURL string `envconfig:"BACKGROUND_URL" default:"ws://localhost:8080/api/v1/ws"`
}

// RedisConfig follows the timeout-in-seconds convention of the redis package config.
type RedisConfig struct {
	URL          string `envconfig:"URL" default:"redis://localhost:6379/0"`
	ReadTimeout  int    `envconfig:"READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"WRITE_TIMEOUT" default:"3"`
	DialTimeout  int    `envconfig:"DIAL_TIMEOUT" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendRedis, BackendMySQL:
	default:
		return nil, fmt.Errorf("load config: unknown storage backend %q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == BackendMySQL && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("load config: PRICECHECK_DATABASE_URL is required for the mysql backend")
	}
	return &cfg, nil
}
