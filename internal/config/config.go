package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Store struct {
		Driver string `yaml:"driver"`
	} `yaml:"store"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		TTL string `yaml:"ttl"`
	} `yaml:"catalog"`
	Leaderboard struct {
		DefaultLimit int `yaml:"default_limit"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path and fills in defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		if c.Postgres.URL != "" {
			c.Store.Driver = DriverPostgres
		} else {
			c.Store.Driver = DriverMemory
		}
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "quizrank.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("store driver %q needs postgres.url", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Leaderboard.DefaultLimit < 0 {
		return fmt.Errorf("leaderboard.default_limit must not be negative")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
