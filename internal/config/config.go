package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEnv             = "dev"
	defaultDBPath          = "./dev.db"
	defaultPort            = "8080"
	defaultStoreID         = "default"
	defaultCurrency        = "USD"
	defaultUnit            = "cm"
	defaultLogLevel        = "info"
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds application configuration. Values come from an optional YAML file,
// then environment variables, then defaults.
type Config struct {
	Env             string        `yaml:"env"`
	DBPath          string        `yaml:"db_path"`
	Port            string        `yaml:"port"`
	StoreID         string        `yaml:"store_id"`
	Currency        string        `yaml:"currency"`
	Unit            string        `yaml:"unit"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Seed            bool          `yaml:"seed"`
}

// Load reads configuration for the server. CONFIG_FILE, when set, names a YAML file
// whose ${VAR} references are expanded before parsing.
func Load() (Config, error) {
	// A missing .env is fine; production should use real env injection.
	if _, err := loadDotEnv(".env"); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Env, "APP_ENV")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.Port, "PORT")
	setString(&c.StoreID, "STORE_ID")
	setString(&c.Currency, "CURRENCY")
	setString(&c.Unit, "UNIT")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if v := os.Getenv("SEED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEED: %w", err)
		}
		c.Seed = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = defaultEnv
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.StoreID == "" {
		c.StoreID = defaultStoreID
	}
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.Unit == "" {
		c.Unit = defaultUnit
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Env != "dev" && c.Env != "prod" {
		return fmt.Errorf("env must be dev or prod, got %q", c.Env)
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", c.Port)
	}
	if strings.TrimSpace(c.StoreID) == "" {
		return errors.New("store_id is required")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code, got %q", c.Currency)
	}
	switch c.Unit {
	case "cm", "mm", "in":
	default:
		return fmt.Errorf("unit must be cm, mm or in, got %q", c.Unit)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be >= 0, got %s", c.ShutdownTimeout)
	}
	return nil
}

// IsDev reports whether the server runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
