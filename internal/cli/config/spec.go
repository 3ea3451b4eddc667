package config

import (
	"time"

	"github.com/yndnr/storefront-go/internal/infra/tlsroots"
	"github.com/yndnr/storefront-go/internal/storage"
)

// Config is the configuration for storefront-cli.
type Config struct {
	// Core is the authenticated backend (auth, cart, orders).
	Core EndpointConfig `koanf:"core" yaml:"core"`
	// Catalog is the public service catalog backend.
	Catalog EndpointConfig `koanf:"catalog" yaml:"catalog"`

	Output    string `koanf:"output" yaml:"output"` // table, json, yaml
	LogLevel  string `koanf:"log_level" yaml:"log_level"`
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	Cache   CacheConfig   `koanf:"cache" yaml:"cache"`
	Storage StorageConfig `koanf:"storage" yaml:"storage"`
	Shell   ShellConfig   `koanf:"shell" yaml:"shell"`
}

// EndpointConfig describes one backend target.
type EndpointConfig struct {
	BaseURL   string        `koanf:"base_url" yaml:"base_url"`
	Timeout   time.Duration `koanf:"timeout" yaml:"timeout"`
	RateLimit float64       `koanf:"rate_limit" yaml:"rate_limit"` // requests per second, 0 disables
	Burst     int           `koanf:"burst" yaml:"burst"`

	// PEM files for private CAs and mutual TLS. Empty uses the system roots.
	CAFile   string `koanf:"ca_file" yaml:"ca_file"`
	CertFile string `koanf:"cert_file" yaml:"cert_file"`
	KeyFile  string `koanf:"key_file" yaml:"key_file"`
}

// TLS returns the endpoint's TLS file settings.
func (e EndpointConfig) TLS() tlsroots.Options {
	return tlsroots.Options{CAFile: e.CAFile, CertFile: e.CertFile, KeyFile: e.KeyFile}
}

// CacheConfig tunes the query cache.
type CacheConfig struct {
	StaleTime        time.Duration `koanf:"stale_time" yaml:"stale_time"`
	CatalogStaleTime time.Duration `koanf:"catalog_stale_time" yaml:"catalog_stale_time"`
	Retry            int           `koanf:"retry" yaml:"retry"`
	RetryDelay       time.Duration `koanf:"retry_delay" yaml:"retry_delay"`
}

// StorageConfig selects where the session token is persisted.
type StorageConfig struct {
	Engine string `koanf:"engine" yaml:"engine"` // badger, memory
	Dir    string `koanf:"dir" yaml:"dir"`
	Cipher string `koanf:"cipher" yaml:"cipher"` // "", aes-gcm, chacha20-poly1305

	// Passphrase enables encryption at rest. Env or flag only.
	Passphrase string `koanf:"passphrase" yaml:"-"`
}

// ShellConfig configures the interactive shell.
type ShellConfig struct {
	HistoryFile string `koanf:"history_file" yaml:"history_file"`
	Prompt      string `koanf:"prompt" yaml:"prompt"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Core: EndpointConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 100 * time.Second,
			Burst:   10,
		},
		Catalog: EndpointConfig{
			BaseURL: "http://localhost:3000/api",
			Timeout: 100 * time.Second,
			Burst:   10,
		},
		Output:    "table",
		LogLevel:  "warn",
		LogFormat: "text",
		Cache: CacheConfig{
			StaleTime:        5 * time.Minute,
			CatalogStaleTime: time.Minute,
			Retry:            1,
			RetryDelay:       200 * time.Millisecond,
		},
		Storage: StorageConfig{
			Engine: "badger",
			Dir:    storage.DefaultDataDir(),
		},
		Shell: ShellConfig{
			Prompt: "storefront> ",
		},
	}
}
