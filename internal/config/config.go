package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a books directory.
const FileName = "tally.yaml"

// EnvFile holds local overrides next to FileName. It is never committed.
const EnvFile = ".env"

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Business       BusinessConfig       `yaml:"business"`
	Storage        StorageConfig        `yaml:"storage"`
	Cache          CacheConfig          `yaml:"cache"`
	Server         ServerConfig         `yaml:"server"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Git            GitConfig            `yaml:"git"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
	Currency   string `yaml:"currency"` // ISO 4217, used for display only
}

// StorageConfig selects the line source.
type StorageConfig struct {
	Driver string `yaml:"driver"`        // csv, sqlite or postgres
	DSN    string `yaml:"dsn,omitempty"` // unused for csv
}

// CacheConfig selects the projection cache.
type CacheConfig struct {
	Driver   string        `yaml:"driver"` // none, memory or redis
	Addr     string        `yaml:"addr,omitempty"`
	Password string        `yaml:"password,omitempty"`
	TTL      time.Duration `yaml:"ttl"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ReconciliationConfig controls the trial balance check.
type ReconciliationConfig struct {
	Tolerance string `yaml:"tolerance"` // decimal; empty means one minor unit of the currency
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Storage and cache drivers.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Environment variables that override tally.yaml.
const (
	EnvStorageDriver = "TALLY_STORAGE_DRIVER"
	EnvStorageDSN    = "TALLY_STORAGE_DSN"
	EnvCacheDriver   = "TALLY_CACHE_DRIVER"
	EnvCacheAddr     = "TALLY_CACHE_ADDR"
	EnvCachePassword = "TALLY_CACHE_PASSWORD"
	EnvServerAddr    = "TALLY_SERVER_ADDR"
)

// Load reads a tally.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	cfg.Reconciliation.Tolerance = ""
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Reconciliation.Tolerance == "" {
		cfg.Reconciliation.Tolerance = DefaultTolerance(cfg.Business.Currency)
	}
	return cfg, nil
}

// LoadDir reads root/tally.yaml and applies overrides from root/.env and
// the process environment, in that order.
func LoadDir(root string) (*Config, error) {
	cfg, err := Load(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}

	env, err := godotenv.Read(filepath.Join(root, EnvFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", EnvFile, err)
	}
	if env == nil {
		env = make(map[string]string)
	}
	for _, key := range []string{EnvStorageDriver, EnvStorageDSN, EnvCacheDriver, EnvCacheAddr, EnvCachePassword, EnvServerAddr} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	cfg.ApplyEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TALLY_* variables. Empty values are ignored.
func (c *Config) ApplyEnv(env map[string]string) {
	set := func(key string, dst *string) {
		if v := env[key]; v != "" {
			*dst = v
		}
	}
	set(EnvStorageDriver, &c.Storage.Driver)
	set(EnvStorageDSN, &c.Storage.DSN)
	set(EnvCacheDriver, &c.Cache.Driver)
	set(EnvCacheAddr, &c.Cache.Addr)
	set(EnvCachePassword, &c.Cache.Password)
	set(EnvServerAddr, &c.Server.Addr)
}

// Validate checks driver names and the tolerance.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverCSV:
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage driver %s needs a dsn", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.Addr == "" {
			return errors.New("redis cache needs an addr")
		}
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}

	if _, err := c.Tolerance(); err != nil {
		return err
	}
	return nil
}

// Tolerance parses the reconciliation tolerance.
func (c *Config) Tolerance() (decimal.Decimal, error) {
	t, err := decimal.NewFromString(c.Reconciliation.Tolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing reconciliation tolerance %q: %w", c.Reconciliation.Tolerance, err)
	}
	if t.IsNegative() {
		return decimal.Zero, fmt.Errorf("reconciliation tolerance %s is negative", t)
	}
	return t, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new books directory.
func Default(businessName, currency string) *Config {
	if currency == "" {
		currency = "USD"
	}
	return &Config{
		Business: BusinessConfig{
			Name:       businessName,
			EntityType: "llc_single_member",
			Currency:   currency,
		},
		Storage: StorageConfig{
			Driver: DriverCSV,
		},
		Cache: CacheConfig{
			Driver: CacheMemory,
			TTL:    10 * time.Minute,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8420",
		},
		Reconciliation: ReconciliationConfig{
			Tolerance: DefaultTolerance(currency),
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Tally",
			AuthorEmail: "books@tally.local",
		},
	}
}

// DefaultTolerance returns one minor unit of currency: "0.01" for USD, "1"
// for JPY, "0.001" for KWD. Currencies go-money does not know get "0.01".
func DefaultTolerance(currency string) string {
	c := money.GetCurrency(strings.ToUpper(currency))
	if c == nil {
		return "0.01"
	}
	return decimal.New(1, -int32(c.Fraction)).String()
}
