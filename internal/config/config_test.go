package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/catalogq/internal/domain/query"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: DriverRedis, Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr string
	}{
		{"redis ok", DatabaseConfig{Driver: DriverRedis, Addrs: []string{"r:6379"}}, ""},
		{"valkey without addrs", DatabaseConfig{Driver: DriverValkey}, "database.addrs is required"},
		{"sqlite ok", DatabaseConfig{Driver: DriverSQLite, Path: "x.db"}, ""},
		{"memory ok", DatabaseConfig{Driver: DriverMemory}, ""},
		{"unknown", DatabaseConfig{Driver: "mongo"}, "database.driver must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tt.db
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Namespaces(t *testing.T) {
	tests := []struct {
		name    string
		ns      map[string]NamespaceConfig
		wantErr string
	}{
		{"bad name", map[string]NamespaceConfig{"Courses!": {}}, "name must match"},
		{"negative ttl", map[string]NamespaceConfig{"courses": {TTLSec: -1}}, "must not be negative"},
		{"unknown attribute", map[string]NamespaceConfig{"courses": {Fields: map[string]string{"author": "equals"}}}, "not an item attribute"},
		{"bad operator", map[string]NamespaceConfig{"courses": {Fields: map[string]string{"tag": "like"}}}, "invalid operator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Namespaces = tt.ns
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 10 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("http timeouts = %+v", cfg.HTTP)
	}
	if cfg.Database.Driver != DriverValkey {
		t.Errorf("expected driver valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Search.PageSize != 50 {
		t.Errorf("expected PageSize=50, got %d", cfg.Search.PageSize)
	}
	if cfg.Cache.DefaultTTLSec != 300 || cfg.Cache.DefaultCapacity != 256 {
		t.Errorf("cache defaults = %+v", cfg.Cache)
	}
	if _, ok := cfg.Namespaces[DefaultNamespace]; !ok || len(cfg.Namespaces) != 1 {
		t.Errorf("namespaces = %v", cfg.Namespaces)
	}
	if cfg.Storage.KeyPrefix != "catalogq:" {
		t.Errorf("expected KeyPrefix='catalogq:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_SQLitePath(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{Driver: DriverSQLite}}
	cfg.ApplyDefaults()
	if cfg.Database.Path != "catalogq.db" {
		t.Errorf("Path = %q", cfg.Database.Path)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: DriverRedis, ReadinessTimeout: 15},
		Search:   SearchConfig{PageSize: 20},
		Cache:    CacheConfig{DefaultTTLSec: 60, DefaultCapacity: 8},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.Database.Driver != DriverRedis || cfg.Search.PageSize != 20 {
		t.Errorf("database/search overridden: %+v %+v", cfg.Database, cfg.Search)
	}
	if cfg.Cache.DefaultTTLSec != 60 || cfg.Cache.DefaultCapacity != 8 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestCacheSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Namespaces = map[string]NamespaceConfig{
		"courses": {TTLSec: 30},
		"listing": {},
	}

	cc := cfg.CacheSettings()
	if err := cc.Validate(); err != nil {
		t.Fatalf("invalid cache config: %v", err)
	}
	if got := cc.For("courses"); got.TTL != 30*time.Second || got.Capacity != 256 {
		t.Errorf("courses = %+v", got)
	}
	if got := cc.For("listing"); got.TTL != 5*time.Minute {
		t.Errorf("listing = %+v", got)
	}
}

func TestVocabularies(t *testing.T) {
	cfg := validConfig()
	cfg.Namespaces = map[string]NamespaceConfig{
		"courses": {Fields: map[string]string{"Tag": "equals", "description": "CONTAINS"}},
		"listing": {},
	}

	vocabs, err := cfg.Vocabularies()
	if err != nil {
		t.Fatal(err)
	}
	if _, op, ok := vocabs["courses"].Lookup("description"); !ok || op != query.Contains {
		t.Errorf("description = %v, %v", op, ok)
	}
	if _, _, ok := vocabs["courses"].Lookup("level"); ok {
		t.Error("courses must not inherit default fields")
	}
	if vocabs["listing"].Len() != query.DefaultVocabulary().Len() {
		t.Errorf("listing vocabulary = %v", vocabs["listing"].Fields())
	}
}

func TestWarmup(t *testing.T) {
	cfg := validConfig()
	cfg.Namespaces = map[string]NamespaceConfig{
		"courses": {Warmup: []string{"", "tag:go"}},
		"listing": {},
	}
	w := cfg.Warmup()
	if len(w) != 1 || len(w["courses"]) != 2 {
		t.Errorf("Warmup = %v", w)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("CATALOGQ_TEST_PORT", "9090")
	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: ${CATALOGQ_TEST_PORT}
database:
  driver: ${CATALOGQ_TEST_DRIVER:-memory}
namespaces:
  courses:
    ttl_sec: 60
    fields:
      tag: equals
      title: contains
    warmup: ["", "tag:go"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Database.Driver != DriverMemory {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Namespaces["courses"].TTLSec != 60 || len(cfg.Namespaces["courses"].Warmup) != 2 {
		t.Errorf("courses = %+v", cfg.Namespaces["courses"])
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 0\ndatabase:\n  driver: memory\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("err = %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CATALOGQ_SET", "value")
	got := string(expandEnvVars([]byte("a=${CATALOGQ_SET} b=${CATALOGQ_UNSET:-fallback} c=${CATALOGQ_UNSET}")))
	if got != "a=value b=fallback c=" {
		t.Errorf("expandEnvVars = %q", got)
	}
}
