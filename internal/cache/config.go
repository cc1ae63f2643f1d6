package cache

import (
	"fmt"
	"time"
)

// Defaults applied when a namespace does not override them.
const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 256
)

// NamespaceConfig bounds one namespace. Zero fields inherit the engine default.
type NamespaceConfig struct {
	TTL      time.Duration
	Capacity int
}

// Config holds the default bounds and per-namespace overrides.
type Config struct {
	Default    NamespaceConfig
	Namespaces map[string]NamespaceConfig
}

// DefaultConfig returns a Config with DefaultTTL and DefaultCapacity.
func DefaultConfig() Config {
	return Config{Default: NamespaceConfig{TTL: DefaultTTL, Capacity: DefaultCapacity}}
}

// For returns the effective bounds for namespace ns.
func (c Config) For(ns string) NamespaceConfig {
	out := c.Default
	if o, ok := c.Namespaces[ns]; ok {
		if o.TTL > 0 {
			out.TTL = o.TTL
		}
		if o.Capacity > 0 {
			out.Capacity = o.Capacity
		}
	}
	return out
}

// Validate checks that every effective bound is positive.
func (c Config) Validate() error {
	if c.Default.TTL <= 0 {
		return fmt.Errorf("default ttl must be positive, got %s", c.Default.TTL)
	}
	if c.Default.Capacity <= 0 {
		return fmt.Errorf("default capacity must be positive, got %d", c.Default.Capacity)
	}
	for ns, o := range c.Namespaces {
		if ns == "" {
			return fmt.Errorf("namespace name is required")
		}
		if o.TTL < 0 {
			return fmt.Errorf("namespace %q: ttl must not be negative", ns)
		}
		if o.Capacity < 0 {
			return fmt.Errorf("namespace %q: capacity must not be negative", ns)
		}
	}
	return nil
}
