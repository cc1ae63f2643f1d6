package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/catalogq/internal/cache"
	"github.com/kailas-cloud/catalogq/internal/domain"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
)

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// DefaultNamespace is served when the config names no namespace.
const DefaultNamespace = "catalog"

// Config holds the catalogq API configuration.
type Config struct {
	HTTP       HTTPConfig                 `yaml:"http"`
	Database   DatabaseConfig             `yaml:"database"`
	Auth       AuthConfig                 `yaml:"auth"`
	Search     SearchConfig               `yaml:"search"`
	Cache      CacheConfig                `yaml:"cache"`
	Namespaces map[string]NamespaceConfig `yaml:"namespaces"`
	Storage    StorageConfig              `yaml:"storage"`
	Logging    LoggingConfig              `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys     []string `yaml:"api_keys"`
	PublicReads bool     `yaml:"public_reads"` // GET/HEAD served without a key
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds catalog storage settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, sqlite, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"` // sqlite database file
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds result paging settings.
type SearchConfig struct {
	PageSize int `yaml:"page_size"`
}

// CacheConfig holds result cache defaults.
type CacheConfig struct {
	DefaultTTLSec    int `yaml:"default_ttl_sec"`
	DefaultCapacity  int `yaml:"default_capacity"`
	SweepIntervalSec int `yaml:"sweep_interval_sec"` // 0 disables the janitor
}

// NamespaceConfig holds per-namespace settings. Zero values fall back to
// the cache defaults; empty fields fall back to the default vocabulary.
type NamespaceConfig struct {
	TTLSec   int               `yaml:"ttl_sec"`
	Capacity int               `yaml:"capacity"`
	Fields   map[string]string `yaml:"fields"` // field -> equals | contains
	Warmup   []string          `yaml:"warmup"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "catalogq.db"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = domain.DefaultPageSize
	}
	if c.Cache.DefaultTTLSec <= 0 {
		c.Cache.DefaultTTLSec = int(cache.DefaultTTL / time.Second)
	}
	if c.Cache.DefaultCapacity <= 0 {
		c.Cache.DefaultCapacity = cache.DefaultCapacity
	}
	if len(c.Namespaces) == 0 {
		c.Namespaces = map[string]NamespaceConfig{DefaultNamespace: {}}
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = domain.KeyPrefix
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for driver %q", DriverSQLite)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of redis, valkey, sqlite, memory, got %q", c.Database.Driver)
	}
	if c.Search.PageSize > domain.MaxPageSize {
		return fmt.Errorf("search.page_size must not exceed %d, got %d", domain.MaxPageSize, c.Search.PageSize)
	}
	if c.Cache.SweepIntervalSec < 0 {
		return fmt.Errorf("cache.sweep_interval_sec must not be negative")
	}
	for _, name := range c.NamespaceNames() {
		ns := c.Namespaces[name]
		if !isNamespaceName(name) {
			return fmt.Errorf("namespaces.%s: name must match [a-z0-9_-]+", name)
		}
		if ns.TTLSec < 0 || ns.Capacity < 0 {
			return fmt.Errorf("namespaces.%s: ttl_sec and capacity must not be negative", name)
		}
		if _, err := ns.vocabulary(); err != nil {
			return fmt.Errorf("namespaces.%s.fields: %w", name, err)
		}
	}
	return nil
}

// NamespaceNames returns the configured namespaces, sorted.
func (c *Config) NamespaceNames() []string {
	names := make([]string, 0, len(c.Namespaces))
	for name := range c.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CacheSettings returns the result cache configuration.
func (c *Config) CacheSettings() cache.Config {
	out := cache.Config{
		Default: cache.NamespaceConfig{
			TTL:      time.Duration(c.Cache.DefaultTTLSec) * time.Second,
			Capacity: c.Cache.DefaultCapacity,
		},
		Namespaces: make(map[string]cache.NamespaceConfig, len(c.Namespaces)),
	}
	for name, ns := range c.Namespaces {
		if ns.TTLSec == 0 && ns.Capacity == 0 {
			continue
		}
		out.Namespaces[name] = cache.NamespaceConfig{
			TTL:      time.Duration(ns.TTLSec) * time.Second,
			Capacity: ns.Capacity,
		}
	}
	return out
}

// Vocabularies returns the field vocabulary of every namespace.
func (c *Config) Vocabularies() (map[string]query.Vocabulary, error) {
	out := make(map[string]query.Vocabulary, len(c.Namespaces))
	for name, ns := range c.Namespaces {
		v, err := ns.vocabulary()
		if err != nil {
			return nil, fmt.Errorf("namespaces.%s.fields: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// Warmup returns the warmup queries of every namespace that declares any.
func (c *Config) Warmup() map[string][]string {
	out := make(map[string][]string)
	for name, ns := range c.Namespaces {
		if len(ns.Warmup) > 0 {
			out[name] = ns.Warmup
		}
	}
	return out
}

func (n NamespaceConfig) vocabulary() (query.Vocabulary, error) {
	if len(n.Fields) == 0 {
		return query.DefaultVocabulary(), nil
	}
	fields := make(map[string]query.Operator, len(n.Fields))
	for name, op := range n.Fields {
		key := strings.ToLower(name)
		if !domcat.IsAttribute(key) {
			return query.Vocabulary{}, fmt.Errorf("field %q is not an item attribute (%s)",
				name, strings.Join(domcat.Attributes, ", "))
		}
		fields[key] = query.Operator(strings.ToLower(op))
	}
	return query.NewVocabulary(fields)
}

func isNamespaceName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
