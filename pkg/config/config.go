package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pario-ai/sqlpilot/pkg/models"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for out-of-range or unknown values.
var ErrInvalid = errors.New("invalid config")

// Config holds all sqlpilot configuration.
type Config struct {
	CacheSize  int    `yaml:"cache_size"`
	RateLimit  int    `yaml:"rate_limit"`
	MaxTokens  int    `yaml:"max_tokens"`
	Dialect    string `yaml:"dialect"`
	Listen     string `yaml:"listen"`
	DBPath     string `yaml:"db_path"`
	SchemaFile string `yaml:"schema_file"`

	Providers []ProviderConfig      `yaml:"providers"`
	Database  DatabaseConfig        `yaml:"database"`
	Log       LogConfig             `yaml:"log"`
	Budget    BudgetConfig          `yaml:"budget"`
	Pricing   []models.ModelPricing `yaml:"pricing"`
	History   models.HistoryConfig  `yaml:"history"`
	Server    ServerConfig          `yaml:"server"`
}

// ProviderConfig defines a generation backend.
// Type is "openai" (default), "anthropic" or "static".
type ProviderConfig struct {
	Name      string        `yaml:"name"`
	Type      string        `yaml:"type"`
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	Statement string        `yaml:"statement"` // static only
}

// DatabaseConfig describes the target database statements run against.
// Dialect defaults to the top-level dialect.
type DatabaseConfig struct {
	Dialect         string        `yaml:"dialect"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxRows         int           `yaml:"max_rows"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// BudgetConfig controls budget enforcement.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// ServerConfig controls the HTTP API edge.
type ServerConfig struct {
	ClientRPS   float64 `yaml:"client_rps"`
	ClientBurst int     `yaml:"client_burst"`
	KeyHeader   string  `yaml:"key_header"`
	RedisAddr   string  `yaml:"redis_addr"`
	ExecuteSQL  bool    `yaml:"execute_sql"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		CacheSize: 100,
		RateLimit: 30,
		MaxTokens: 150,
		Dialect:   string(models.DialectMySQL),
		Listen:    ":8080",
		DBPath:    "sqlpilot.db",
		Log: LogConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			MaxRows: 1000,
		},
		History: models.HistoryConfig{
			Enabled:          false,
			RetentionDays:    30,
			IncludeInput:     true,
			MaxStatementSize: 8192,
		},
		Server: ServerConfig{
			ClientRPS:   5,
			ClientBurst: 10,
			KeyHeader:   "X-API-Key",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Database.Dialect == "" {
		cfg.Database.Dialect = cfg.Dialect
	}
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = cfg.DBPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set and exists, and returns Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

var knownDialects = map[string]bool{
	"mysql": true, "mssql": true, "sqlserver": true,
	"postgresql": true, "postgres": true, "pg": true,
}

var knownProviderTypes = map[string]bool{
	"": true, "openai": true, "anthropic": true, "static": true,
}

// Validate checks value ranges and enumerations. Credentials are checked
// later by the backend constructors.
func (c *Config) Validate() error {
	if c.CacheSize <= 0 {
		return fmt.Errorf("%w: cache_size must be positive, got %d", ErrInvalid, c.CacheSize)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: rate_limit must be positive, got %d", ErrInvalid, c.RateLimit)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrInvalid, c.MaxTokens)
	}
	if !knownDialects[strings.ToLower(strings.TrimSpace(c.Dialect))] {
		return fmt.Errorf("%w: unknown dialect %q", ErrInvalid, c.Dialect)
	}
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("%w: provider name is required", ErrInvalid)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate provider %q", ErrInvalid, p.Name)
		}
		seen[p.Name] = true
		if !knownProviderTypes[p.Type] {
			return fmt.Errorf("%w: provider %q has unknown type %q", ErrInvalid, p.Name, p.Type)
		}
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("%w: history.retention_days must not be negative, got %d", ErrInvalid, c.History.RetentionDays)
	}
	if c.History.MaxStatementSize < 0 {
		return fmt.Errorf("%w: history.max_statement_size must not be negative, got %d", ErrInvalid, c.History.MaxStatementSize)
	}
	for _, p := range c.Budget.Policies {
		if p.Period != models.BudgetDaily && p.Period != models.BudgetMonthly {
			return fmt.Errorf("%w: budget period %q", ErrInvalid, p.Period)
		}
	}
	return nil
}
