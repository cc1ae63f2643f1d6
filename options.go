package catalogq

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogq/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*config.Config, *clientOptions)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*config.Config, *clientOptions)

func (f optionFunc) apply(c *config.Config, o *clientOptions) { f(c, o) }

type clientOptions struct {
	logger     *zap.Logger
	instrument bool
}

// WithValkey stores the catalog in Valkey. Text predicates are checked in
// process because Valkey Search indexes no TEXT fields.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		c.Database.Driver = config.DriverValkey
		c.Database.Addrs = []string{addr}
		c.Database.Password = password
	})
}

// WithRedis stores the catalog in Redis with RediSearch.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		c.Database.Driver = config.DriverRedis
		c.Database.Addrs = []string{addr}
		c.Database.Password = password
	})
}

// WithSQLite stores the catalog in a SQLite file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		c.Database.Driver = config.DriverSQLite
		c.Database.Path = path
	})
}

// WithMemory keeps the catalog in process memory. This is the default.
func WithMemory() Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		c.Database.Driver = config.DriverMemory
	})
}

// WithNamespace serves ns. fields maps each query field to "equals" or
// "contains"; nil uses tag, level, language (equals) and title (contains).
func WithNamespace(ns string, fields map[string]string) Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		if c.Namespaces == nil {
			c.Namespaces = make(map[string]config.NamespaceConfig)
		}
		n := c.Namespaces[ns]
		n.Fields = fields
		c.Namespaces[ns] = n
	})
}

// WithNamespaceCache overrides cache bounds for ns. Zero keeps the default.
func WithNamespaceCache(ns string, ttl time.Duration, capacity int) Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		if c.Namespaces == nil {
			c.Namespaces = make(map[string]config.NamespaceConfig)
		}
		n := c.Namespaces[ns]
		n.TTLSec = int(ttl / time.Second)
		n.Capacity = capacity
		c.Namespaces[ns] = n
	})
}

// WithCache sets the default result cache TTL and per-namespace capacity.
func WithCache(ttl time.Duration, capacity int) Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		c.Cache.DefaultTTLSec = int(ttl / time.Second)
		c.Cache.DefaultCapacity = capacity
	})
}

// WithSweepInterval removes expired cache entries periodically.
func WithSweepInterval(d time.Duration) Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		c.Cache.SweepIntervalSec = int(d / time.Second)
	})
}

// WithPageSize bounds the items a search returns.
func WithPageSize(n int) Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		c.Search.PageSize = n
	})
}

// WithKeyPrefix prefixes every Redis key and index name.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *config.Config, _ *clientOptions) {
		c.Storage.KeyPrefix = prefix
	})
}

// WithLogger sets the logger. Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(_ *config.Config, o *clientOptions) {
		o.logger = l
	})
}

// WithMetrics registers cache and fetch metrics on the default Prometheus
// registry.
func WithMetrics() Option {
	return optionFunc(func(_ *config.Config, o *clientOptions) {
		o.instrument = true
	})
}
