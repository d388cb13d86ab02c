// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tripnav/internal/transport"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig              `yaml:"server"`
	Provider ProviderConfig            `yaml:"provider"`
	Cache    CacheConfig               `yaml:"cache"`
	Store    StoreConfig               `yaml:"store"`
	Redis    RedisConfig               `yaml:"redis"`
	Kafka    KafkaConfig               `yaml:"kafka"`
	Logging  LoggingConfig             `yaml:"logging"`
	Profiles map[string]transport.Spec `yaml:"profiles"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" validate:"gte=0,lte=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gte=0"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

type ProviderConfig struct {
	BaseURL string        `yaml:"baseURL" validate:"omitempty,url"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	Rate    float64       `yaml:"rate" validate:"gte=0"`
	Burst   int           `yaml:"burst" validate:"gte=0"`
}

type CacheConfig struct {
	Size int           `yaml:"size" validate:"gte=0"`
	TTL  time.Duration `yaml:"ttl" validate:"gte=0"`
}

type StoreConfig struct {
	DatabaseURL string `yaml:"databaseURL"`
	Migrate     bool   `yaml:"migrate"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" validate:"dive,hostname_port"`
	Topic   string   `yaml:"topic"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Env   string `yaml:"env" validate:"omitempty,oneof=development production"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: 10 * time.Second},
		Provider: ProviderConfig{Timeout: 10 * time.Second, Rate: 5, Burst: 5},
		Cache:    CacheConfig{Size: 100, TTL: 24 * time.Hour},
		Store:    StoreConfig{Migrate: true},
		Logging:  LoggingConfig{Level: "info", Env: "production"},
	}
}

// Load reads path (optional), applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and the profile overrides.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	_, err := c.ProfileTable()
	return err
}

// ProfileTable merges the configured overrides into the default table.
func (c Config) ProfileTable() (*transport.Table, error) {
	return transport.DefaultTable().WithOverrides(c.Profiles)
}

func applyEnv(c *Config, getenv func(string) string) {
	if v := getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := getenv("ORS_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
