package confloader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	LogLevel string `koanf:"log_level"`
	API      struct {
		BaseURL string `koanf:"base_url"`
		Timeout string `koanf:"timeout"`
	} `koanf:"api"`
	Cache struct {
		Retry int `koanf:"retry"`
	} `koanf:"cache"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/tmp/x.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want TEST_", l.envPrefix)
	}
	if l.FilePath() != "/tmp/x.yaml" {
		t.Errorf("FilePath() = %q", l.FilePath())
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"STOREFRONT_LOG_LEVEL", "log_level"},
		{"STOREFRONT_API__BASE_URL", "api.base_url"},
		{"STOREFRONT_CACHE__RETRY", "cache.retry"},
	}
	for _, tt := range tests {
		if got := EnvKey(DefaultEnvPrefix, tt.name); got != tt.want {
			t.Errorf("EnvKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
api:
  base_url: "https://api.example.test"
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := l.GetString("api.base_url"); got != "https://api.example.test" {
		t.Errorf("api.base_url = %q", got)
	}
	if !l.Exists("log_level") {
		t.Error("log_level should exist")
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	l := NewLoader()
	err := l.LoadFile("/nonexistent/config.yaml")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadFile() error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoader_Load_OptionalFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	var cfg testConfig
	cfg.LogLevel = "warn"
	if err := NewLoader(WithConfigFile(missing), WithOptionalFile()).Load(&cfg); err != nil {
		t.Fatalf("Load() with optional file error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, default should survive", cfg.LogLevel)
	}

	if err := NewLoader(WithConfigFile(missing)).Load(&cfg); err == nil {
		t.Error("Load() should fail for a required missing file")
	}
}

func TestLoader_LoadEnv(t *testing.T) {
	t.Setenv("STOREFRONT_LOG_LEVEL", "error")
	t.Setenv("STOREFRONT_API__TIMEOUT", "5s")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := l.GetString("log_level"); got != "error" {
		t.Errorf("log_level = %q, want error", got)
	}
	if got := l.GetString("api.timeout"); got != "5s" {
		t.Errorf("api.timeout = %q, want 5s", got)
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
api:
  base_url: "from-file"
  timeout: "10s"
cache:
  retry: 2
`)
	t.Setenv("STOREFRONT_API__BASE_URL", "from-env")
	t.Setenv("STOREFRONT_LOG_LEVEL", "info")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"log_level": "error"}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "from-env" {
		t.Errorf("BaseURL = %q, env should override file", cfg.API.BaseURL)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, override should win", cfg.LogLevel)
	}
	if cfg.API.Timeout != "10s" {
		t.Errorf("Timeout = %q, want 10s from file", cfg.API.Timeout)
	}
	if cfg.Cache.Retry != 2 || l.GetInt("cache.retry") != 2 {
		t.Errorf("Retry = %d, want 2", cfg.Cache.Retry)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load")
	}
}

func TestLoader_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")

	var cfg testConfig
	cfg.API.BaseURL = "https://default.test"
	cfg.Cache.Retry = 1

	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://default.test" || cfg.Cache.Retry != 1 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{
		"api":   map[string]any{"base_url": "http://map"},
		"debug": true,
	}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	if l.GetString("api.base_url") != "http://map" {
		t.Errorf("api.base_url = %q", l.GetString("api.base_url"))
	}
	if !l.GetBool("debug") {
		t.Error("debug should be true")
	}
	if len(l.Keys()) != 2 || len(l.All()) != 2 {
		t.Errorf("Keys() = %v", l.Keys())
	}
	if l.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	if _, err := mapProvider(nil).ReadBytes(); !errors.Is(err, ErrReadBytesNotSupported) {
		t.Errorf("ReadBytes() error = %v", err)
	}
}

func TestLoader_LoadMap_DottedKeys(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"api.base_url": "http://flag"}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.API.BaseURL != "http://flag" {
		t.Errorf("BaseURL = %q, want http://flag", cfg.API.BaseURL)
	}
}
