package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output != "table" {
		t.Errorf("Output = %q, want table", cfg.Output)
	}
	if cfg.Cache.Retry != 1 {
		t.Errorf("Cache.Retry = %d, want 1", cfg.Cache.Retry)
	}
	if cfg.Cache.StaleTime != 5*time.Minute {
		t.Errorf("Cache.StaleTime = %v, want 5m", cfg.Cache.StaleTime)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if !filepath.IsAbs(path) {
		t.Errorf("path %q should be absolute", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("path %q should end with config.yaml", path)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Core.BaseURL != Default().Core.BaseURL {
		t.Errorf("Core.BaseURL = %q, want default", cfg.Core.BaseURL)
	}
}

func TestLoad_FileEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
core:
  base_url: "https://core.example.test/api"
  timeout: 15s
output: json
cache:
  retry: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STOREFRONT_CATALOG__BASE_URL", "https://catalog.example.test")
	t.Setenv("STOREFRONT_STORAGE__PASSPHRASE", "correct horse battery")

	cfg, err := Load(path, map[string]any{"output": "yaml"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Core.BaseURL != "https://core.example.test/api" {
		t.Errorf("Core.BaseURL = %q", cfg.Core.BaseURL)
	}
	if cfg.Core.Timeout != 15*time.Second {
		t.Errorf("Core.Timeout = %v, want 15s", cfg.Core.Timeout)
	}
	if cfg.Catalog.BaseURL != "https://catalog.example.test" {
		t.Errorf("Catalog.BaseURL = %q", cfg.Catalog.BaseURL)
	}
	if cfg.Output != "yaml" {
		t.Errorf("Output = %q, flag override should win", cfg.Output)
	}
	if cfg.Cache.Retry != 3 {
		t.Errorf("Cache.Retry = %d, want 3", cfg.Cache.Retry)
	}
	if cfg.Storage.Passphrase != "correct horse battery" {
		t.Error("passphrase should come from the environment")
	}
	if cfg.Storage.Engine != "badger" {
		t.Errorf("Storage.Engine = %q, default should survive", cfg.Storage.Engine)
	}
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), map[string]any{"output": "xml"})
	if err == nil || !strings.Contains(err.Error(), "output") {
		t.Errorf("Load() error = %v, want output validation error", err)
	}
}

func TestLoad_IncompleteKeyPair(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), map[string]any{"core.cert_file": "client.pem"})
	if err == nil || !strings.Contains(err.Error(), "core: tlsroots: cert_file and key_file") {
		t.Errorf("Load() error = %v, want key pair validation error", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.Output = "json"
	cfg.Cache.StaleTime = 90 * time.Second
	cfg.Storage.Passphrase = "do not persist me"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "do not persist me") {
		t.Error("passphrase must not be written to disk")
	}

	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Output != "json" || loaded.Cache.StaleTime != 90*time.Second {
		t.Errorf("round trip lost values: output=%q stale=%v", loaded.Output, loaded.Cache.StaleTime)
	}
}

func TestSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("cache.retry", "4"); err != nil {
		t.Fatalf("Set(cache.retry) error = %v", err)
	}
	if cfg.Cache.Retry != 4 {
		t.Errorf("Cache.Retry = %d, want 4", cfg.Cache.Retry)
	}

	if err := cfg.Set("core.timeout", "30s"); err != nil {
		t.Fatalf("Set(core.timeout) error = %v", err)
	}
	if cfg.Core.Timeout != 30*time.Second {
		t.Errorf("Core.Timeout = %v, want 30s", cfg.Core.Timeout)
	}

	if err := cfg.Set("nope", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set(nope) error = %v, want ErrUnknownKey", err)
	}
	if err := cfg.Set("storage.passphrase", "secretsecret"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set(storage.passphrase) error = %v, want ErrUnknownKey", err)
	}

	if err := cfg.Set("output", "xml"); err == nil {
		t.Error("Set(output, xml) should fail validation")
	}
	if cfg.Output != "table" {
		t.Errorf("Output = %q, failed Set must not modify config", cfg.Output)
	}
}

func TestGetAndKeys(t *testing.T) {
	cfg := Default()

	v, ok := cfg.Get("output")
	if !ok || v != "table" {
		t.Errorf("Get(output) = %v, %v", v, ok)
	}

	keys := Keys()
	for _, want := range []string{"core.base_url", "catalog.base_url", "cache.retry", "log_level", "storage.engine", "core.ca_file", "catalog.key_file"} {
		found := false
		for _, k := range keys {
			if k == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Keys() missing %q", want)
		}
	}
}
