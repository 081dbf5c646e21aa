package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rana718/fakeseed/internal/seeder"
	"github.com/spf13/viper"
)

const FileName = "fakeseed.config.json"

type Config struct {
	Database Database `json:"database" mapstructure:"database"`
	Seed     Seed     `json:"seed" mapstructure:"seed"`
	Log      Log      `json:"log" mapstructure:"log"`
}

type Database struct {
	Provider string `json:"provider" mapstructure:"provider"`
	URLEnv   string `json:"url_env" mapstructure:"url_env"`
}

type Seed struct {
	Count       int            `json:"count" mapstructure:"count"`
	Mode        string         `json:"mode" mapstructure:"mode"` // "y"/"Y" replaces, anything else appends
	BatchSize   int            `json:"batch_size" mapstructure:"batch_size"`
	RandomSeed  int64          `json:"random_seed" mapstructure:"random_seed"` // 0 = time based
	MaxAttempts int            `json:"max_attempts" mapstructure:"max_attempts"`
	UniqueScope string         `json:"unique_scope" mapstructure:"unique_scope"`
	AtomicAll   bool           `json:"atomic_all" mapstructure:"atomic_all"`
	TxTimeout   time.Duration  `json:"tx_timeout" mapstructure:"tx_timeout"`
	UsePresets  bool           `json:"use_presets" mapstructure:"use_presets"`
	Tables      map[string]int `json:"tables,omitempty" mapstructure:"tables"`
}

type Log struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Database: Database{
			Provider: "postgresql",
			URLEnv:   "DATABASE_URL",
		},
		Seed: Seed{
			Count:       100,
			Mode:        "n",
			BatchSize:   100,
			MaxAttempts: 1000,
			UniqueScope: string(seeder.ScopeColumn),
			AtomicAll:   true,
			TxTimeout:   5 * time.Minute,
			UsePresets:  true,
		},
		Log: Log{
			Level:  "warn",
			Format: "console",
		},
	}
}

// SetDefaults registers DefaultConfig values so unset keys fall back to them.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("database.provider", d.Database.Provider)
	v.SetDefault("database.url_env", d.Database.URLEnv)
	v.SetDefault("seed.count", d.Seed.Count)
	v.SetDefault("seed.mode", d.Seed.Mode)
	v.SetDefault("seed.batch_size", d.Seed.BatchSize)
	v.SetDefault("seed.random_seed", d.Seed.RandomSeed)
	v.SetDefault("seed.max_attempts", d.Seed.MaxAttempts)
	v.SetDefault("seed.unique_scope", d.Seed.UniqueScope)
	v.SetDefault("seed.atomic_all", d.Seed.AtomicAll)
	v.SetDefault("seed.tx_timeout", d.Seed.TxTimeout.String())
	v.SetDefault("seed.use_presets", d.Seed.UsePresets)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Provider = strings.ToLower(cfg.Database.Provider)
	cfg.Seed.UniqueScope = strings.ToLower(cfg.Seed.UniqueScope)
	return &cfg, nil
}

func (c *Config) GetDatabaseURL() (string, error) {
	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL == "" {
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
	}
	return dbURL, nil
}

func (c *Config) Validate() error {
	supportedProviders := []string{"postgresql", "postgres", "mysql", "sqlite", "sqlite3"}
	supported := false
	for _, provider := range supportedProviders {
		if c.Database.Provider == provider {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported database provider: %s. Supported providers: %v", c.Database.Provider, supportedProviders)
	}

	if c.Seed.Count <= 0 {
		return fmt.Errorf("seed.count must be positive, got %d", c.Seed.Count)
	}
	if c.Seed.BatchSize <= 0 {
		return fmt.Errorf("seed.batch_size must be positive, got %d", c.Seed.BatchSize)
	}
	if c.Seed.MaxAttempts <= 0 {
		return fmt.Errorf("seed.max_attempts must be positive, got %d", c.Seed.MaxAttempts)
	}
	for table, n := range c.Seed.Tables {
		if n < 0 {
			return fmt.Errorf("seed.tables.%s must not be negative, got %d", table, n)
		}
	}
	if _, err := seeder.ParseUniqueScope(c.Seed.UniqueScope); err != nil {
		return fmt.Errorf("seed.unique_scope: %w", err)
	}
	if c.Seed.TxTimeout < 0 {
		return fmt.Errorf("seed.tx_timeout must not be negative")
	}
	return nil
}

// SeedOptions converts the seed section into seeder options.
func (c *Config) SeedOptions() seeder.Options {
	return seeder.Options{
		Count:       c.Seed.Count,
		Tables:      c.Seed.Tables,
		Mode:        seeder.ParseMode(c.Seed.Mode),
		BatchSize:   c.Seed.BatchSize,
		RandomSeed:  c.Seed.RandomSeed,
		MaxAttempts: c.Seed.MaxAttempts,
		UniqueScope: seeder.UniqueScope(c.Seed.UniqueScope),
		AtomicAll:   c.Seed.AtomicAll,
		TxTimeout:   c.Seed.TxTimeout,
		UsePresets:  c.Seed.UsePresets,
	}
}

// InitializeProject writes a default config file into the working directory.
func InitializeProject() error {
	if _, err := os.Stat(FileName); err == nil {
		return fmt.Errorf("%s already exists", FileName)
	}

	cfg := DefaultConfig()
	data, err := json.MarshalIndent(map[string]interface{}{
		"database": cfg.Database,
		"seed": map[string]interface{}{
			"count":        cfg.Seed.Count,
			"mode":         cfg.Seed.Mode,
			"batch_size":   cfg.Seed.BatchSize,
			"random_seed":  cfg.Seed.RandomSeed,
			"max_attempts": cfg.Seed.MaxAttempts,
			"unique_scope": cfg.Seed.UniqueScope,
			"atomic_all":   cfg.Seed.AtomicAll,
			"tx_timeout":   cfg.Seed.TxTimeout.String(),
			"use_presets":  cfg.Seed.UsePresets,
		},
		"log": cfg.Log,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(FileName, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}
