package sqlite

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Default configuration values
const (
	MemoryPath             = ":memory:"
	DefaultBusyTimeout     = 5 * time.Second
	DefaultMaxOpenConns    = 1
	DefaultConnMaxIdleTime = 0 // never close idle connections, an in-memory database dies with its last one
)

// SQLiteConfig holds the configuration for an embedded SQLite database
type SQLiteConfig struct {
	Path        string        // file path, or ":memory:" (required)
	ForeignKeys bool          // PRAGMA foreign_keys (default: true)
	BusyTimeout time.Duration // PRAGMA busy_timeout (default: 5 seconds)
	JournalMode string        // PRAGMA journal_mode, e.g. "WAL" (optional)

	// Connection pooling. An in-memory database is per connection, so it is
	// always pinned to a single connection.
	MaxOpenConns int // default: 1
}

// NewDefaultConfig creates a config for the database file at path
func NewDefaultConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:         path,
		ForeignKeys:  true,
		BusyTimeout:  DefaultBusyTimeout,
		MaxOpenConns: DefaultMaxOpenConns,
	}
}

// NewMemoryConfig creates a config for a private in-memory database
func NewMemoryConfig() *SQLiteConfig {
	return NewDefaultConfig(MemoryPath)
}

// IsMemory reports whether the config points at an in-memory database
func (c *SQLiteConfig) IsMemory() bool {
	return c.Path == MemoryPath || strings.Contains(c.Path, "mode=memory")
}

// Validate checks the configuration and fills defaults
func (c *SQLiteConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%w: path is required", ErrSQLiteInvalidConfig)
	}
	if strings.ContainsRune(c.Path, '?') {
		return fmt.Errorf("%w: path must not carry query parameters, use the config fields", ErrSQLiteInvalidConfig)
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = DefaultBusyTimeout
	}
	if c.MaxOpenConns <= 0 || c.IsMemory() {
		c.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.JournalMode != "" {
		switch strings.ToUpper(c.JournalMode) {
		case "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
		default:
			return fmt.Errorf("%w: invalid journal mode '%s'", ErrSQLiteInvalidConfig, c.JournalMode)
		}
	}
	return nil
}

// ToDSN builds the modernc.org/sqlite DSN. Timestamps are written in SQLite's
// own text format so date functions such as julianday() can read them.
func (c *SQLiteConfig) ToDSN() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	params := url.Values{}
	fk := 0
	if c.ForeignKeys {
		fk = 1
	}
	params.Add("_pragma", fmt.Sprintf("foreign_keys(%d)", fk))
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.JournalMode != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", strings.ToUpper(c.JournalMode)))
	}
	params.Set("_time_format", "sqlite")

	return c.Path + "?" + params.Encode(), nil
}

// WithJournalMode sets the journal mode and returns the config for method chaining
func (c *SQLiteConfig) WithJournalMode(mode string) *SQLiteConfig {
	c.JournalMode = mode
	return c
}

// WithForeignKeys toggles foreign key enforcement and returns the config for method chaining
func (c *SQLiteConfig) WithForeignKeys(on bool) *SQLiteConfig {
	c.ForeignKeys = on
	return c
}

// WithBusyTimeout sets the busy timeout and returns the config for method chaining
func (c *SQLiteConfig) WithBusyTimeout(d time.Duration) *SQLiteConfig {
	c.BusyTimeout = d
	return c
}

func (c *SQLiteConfig) String() string {
	return fmt.Sprintf("SQLite{path=%s, foreign_keys=%t, journal=%s}", c.Path, c.ForeignKeys, c.JournalMode)
}

// ParseDSN accepts a bare path, "sqlite://path" or "file:path". Query
// parameters are dropped; the config fields decide the pragmas.
func ParseDSN(dsn string) (*SQLiteConfig, error) {
	path := strings.TrimSpace(dsn)
	path = strings.TrimPrefix(path, "sqlite://")
	path = strings.TrimPrefix(path, "sqlite3://")
	path = strings.TrimPrefix(path, "file:")
	if i := strings.IndexRune(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return nil, fmt.Errorf("%w: %q", ErrSQLiteInvalidDSN, dsn)
	}
	config := NewDefaultConfig(path)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
