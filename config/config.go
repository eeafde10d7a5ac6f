// Package config loads the shopdata settings (defaults, then an optional
// YAML file, then SHOP_* environment variables) and opens the configured
// database backend.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/medatechnology/goutil/medaerror"
	orm "github.com/medatechnology/simpleshop"
	"github.com/medatechnology/simpleshop/postgres"
	"github.com/medatechnology/simpleshop/rqlite"
	"github.com/medatechnology/simpleshop/shop"
	"github.com/medatechnology/simpleshop/sqlite"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverRQLite   = "rqlite"

	DefaultDSN       = "shop.db"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	EnvDriver    = "SHOP_DB_DRIVER"
	EnvDSN       = "SHOP_DB_DSN"
	EnvLogLevel  = "SHOP_LOG_LEVEL"
	EnvLogFormat = "SHOP_LOG_FORMAT"
	EnvLocale    = "SHOP_LOCALE"
	EnvSeed      = "SHOP_SEED"
)

var (
	ErrInvalidConfig = medaerror.MedaError{Message: "invalid configuration"}
	ErrUnknownDriver = medaerror.MedaError{Message: "unknown database driver"}
)

type Config struct {
	Database  DatabaseConfig       `yaml:"database"`
	Log       LogConfig            `yaml:"log"`
	Locale    string               `yaml:"locale"`
	Generator shop.GeneratorConfig `yaml:"generator"`
}

// DatabaseConfig picks a backend. An empty Driver is inferred from the DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

func Default() *Config {
	return &Config{
		Database:  DatabaseConfig{Driver: DriverSQLite, DSN: DefaultDSN},
		Log:       LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Locale:    shop.DefaultLocale,
		Generator: shop.DefaultGeneratorConfig(),
	}
}

// Load reads path (skipped when empty) over the defaults, then applies the
// process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	// a DSN from the environment without a driver should not inherit the file's driver
	if v, ok := lookup(EnvDSN); ok && strings.TrimSpace(v) != "" {
		c.Database.DSN = strings.TrimSpace(v)
		c.Database.Driver = ""
	}
	set(EnvDriver, &c.Database.Driver)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvLogFormat, &c.Log.Format)
	set(EnvLocale, &c.Locale)

	if v, ok := lookup(EnvSeed); ok && strings.TrimSpace(v) != "" {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvSeed, v, err)
		}
		c.Generator.Seed = seed
	}
	return nil
}

func (c *Config) Validate() error {
	driver, err := ResolveDriver(c.Database.Driver, c.Database.DSN)
	if err != nil {
		return err
	}
	c.Database.Driver = driver
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("%w: database dsn is required", ErrInvalidConfig)
	}
	if _, err = orm.ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	switch c.Log.Format {
	case "":
		c.Log.Format = DefaultLogFormat
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q, want text or json", ErrInvalidConfig, c.Log.Format)
	}
	if c.Locale == "" {
		c.Locale = shop.DefaultLocale
	}
	if err = c.Generator.Validate(); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	return nil
}

// ResolveDriver normalizes driver, or infers it from the DSN scheme when empty.
func ResolveDriver(driver, dsn string) (string, error) {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case DriverSQLite, DriverPostgres, DriverPgx, DriverRQLite:
		return d, nil
	case "sqlite3":
		return DriverSQLite, nil
	case "postgresql", "pgsql":
		return DriverPostgres, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(lower, "pgx://"):
		return DriverPgx, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "rqlite://"):
		return DriverRQLite, nil
	}
	return DriverSQLite, nil
}

// OpenDatabase connects to the backend cfg names.
func OpenDatabase(cfg DatabaseConfig) (orm.Database, error) {
	driver, err := ResolveDriver(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverPostgres, DriverPgx:
		pc, err := postgres.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if driver == DriverPgx {
			pc.WithDriver(postgres.DriverPgx)
		}
		db, err := postgres.NewDatabase(*pc)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverRQLite:
		db, err := rqlite.NewDatabaseFromDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		sc, err := sqlite.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		db, err := sqlite.NewDatabase(*sc)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// NewLogger builds the logrus-backed logger cfg describes.
func NewLogger(cfg LogConfig, out io.Writer) (orm.Logger, error) {
	level, err := orm.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return orm.NewLogrusLogger(out, level, strings.EqualFold(cfg.Format, "json")), nil
}
