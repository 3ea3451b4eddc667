package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/maps"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/storefront-go/internal/infra/confloader"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
	"github.com/yndnr/storefront-go/pkg/crypto/adaptive"
)

// ErrUnknownKey is returned by Set for keys the config does not define.
var ErrUnknownKey = errors.New("config: unknown key")

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "storefront", "config.yaml")
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".storefront", "config.yaml")
}

// Load builds the configuration from defaults, the file at path (optional),
// STOREFRONT_* environment variables and overrides, then validates it.
func Load(path string, overrides map[string]any) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOptionalFile(),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML with mode 0600, replacing any previous
// file atomically.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Validate checks values that would otherwise fail later and obscurely.
func (c *Config) Validate() error {
	var errs []error

	for name, ep := range map[string]EndpointConfig{"core": c.Core, "catalog": c.Catalog} {
		u, err := url.Parse(ep.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s.base_url: %q is not an http(s) URL", name, ep.BaseURL))
		}
		if ep.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s.timeout must not be negative", name))
		}
		if ep.RateLimit < 0 || ep.Burst < 0 {
			errs = append(errs, fmt.Errorf("%s.rate_limit and burst must not be negative", name))
		}
		if err := ep.TLS().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	switch c.Output {
	case "table", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output: %q is not one of table, json, yaml", c.Output))
	}
	if !logger.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level: invalid level %q", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format: %q is not text or json", c.LogFormat))
	}

	if c.Cache.Retry < 0 || c.Cache.StaleTime < 0 || c.Cache.CatalogStaleTime < 0 || c.Cache.RetryDelay < 0 {
		errs = append(errs, errors.New("cache: durations and retry must not be negative"))
	}

	switch c.Storage.Engine {
	case "badger", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.engine: %q is not badger or memory", c.Storage.Engine))
	}
	switch adaptive.CipherType(c.Storage.Cipher) {
	case "", adaptive.CipherAESGCM, adaptive.CipherChaCha20:
	default:
		errs = append(errs, fmt.Errorf("storage.cipher: unknown cipher %q", c.Storage.Cipher))
	}
	if p := c.Storage.Passphrase; p != "" && len(p) < adaptive.MinPassphraseLength {
		errs = append(errs, fmt.Errorf("storage.passphrase must be at least %d characters", adaptive.MinPassphraseLength))
	}

	return errors.Join(errs...)
}

// Keys lists every settable dotted key in sorted order.
func Keys() []string {
	flat, _ := maps.Flatten(Default().toMap(), nil, ".")
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns value to the dotted key and revalidates. c is unchanged on
// error.
func (c *Config) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if !knownKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	l := confloader.NewLoader()
	if err := l.LoadMap(c.toMap()); err != nil {
		return err
	}
	if err := l.LoadMap(map[string]any{key: value}); err != nil {
		return err
	}

	next := *c
	if err := l.Unmarshal(&next); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Get returns the value stored under the dotted key.
func (c *Config) Get(key string) (any, bool) {
	flat, _ := maps.Flatten(c.toMap(), nil, ".")
	v, ok := flat[strings.ToLower(key)]
	return v, ok
}

func knownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// toMap converts c to a nested map keyed like the YAML file. Values that
// are never written to disk are left out.
func (c *Config) toMap() map[string]any {
	data, err := yaml.Marshal(c)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}
