package transaction

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultIsolation = sql.LevelReadCommitted
	DefaultTimeout   = 30 * time.Second
	DefaultMaxWait   = 2 * time.Second
)

// Config holds the boundary defaults. Zero values fall back to the package
// defaults.
type Config struct {
	Isolation string        `json:"isolation" yaml:"isolation" koanf:"isolation"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout" koanf:"timeout"`
	MaxWait   time.Duration `json:"max_wait" yaml:"max_wait" koanf:"max_wait"`
}

// Options controls a single boundary.
type Options struct {
	Isolation  sql.IsolationLevel
	Timeout    time.Duration
	MaxWait    time.Duration
	RequireNew bool
}

// Option customizes a boundary.
type Option func(*Options)

// WithIsolation sets the isolation level of a new transaction. It has no
// effect when the boundary joins an active transaction.
func WithIsolation(level sql.IsolationLevel) Option {
	return func(o *Options) { o.Isolation = level }
}

// WithTimeout bounds the body of a new transaction. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithMaxWait bounds how long beginning a new transaction may take. Zero
// disables the bound.
func WithMaxWait(d time.Duration) Option {
	return func(o *Options) { o.MaxWait = d }
}

// RequireNew always opens a new transaction, even when one is active.
func RequireNew() Option {
	return func(o *Options) { o.RequireNew = true }
}

// DefaultOptions returns the package defaults.
func DefaultOptions() Options {
	return Options{
		Isolation: DefaultIsolation,
		Timeout:   DefaultTimeout,
		MaxWait:   DefaultMaxWait,
	}
}

// Options resolves the configuration into boundary defaults.
func (c Config) Options() (Options, error) {
	o := DefaultOptions()
	if c.Isolation != "" {
		level, err := ParseIsolation(c.Isolation)
		if err != nil {
			return Options{}, err
		}
		o.Isolation = level
	}
	if c.Timeout > 0 {
		o.Timeout = c.Timeout
	}
	if c.MaxWait > 0 {
		o.MaxWait = c.MaxWait
	}
	return o, nil
}

// ParseIsolation maps names such as "read_committed" or "SERIALIZABLE" to an
// isolation level.
func ParseIsolation(name string) (sql.IsolationLevel, error) {
	normalized := strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(name)))
	switch normalized {
	case "default", "":
		return sql.LevelDefault, nil
	case "read uncommitted":
		return sql.LevelReadUncommitted, nil
	case "read committed":
		return sql.LevelReadCommitted, nil
	case "repeatable read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unsupported isolation level %q", name)
	}
}
