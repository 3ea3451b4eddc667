// Package config defines the storefront-cli configuration.
//
//   - spec.go: the Config struct and its defaults
//   - loader.go: loading (file, STOREFRONT_* env, flags), saving and
//     key-based updates used by `storefront-cli config set`
//
// The default file lives at $XDG_CONFIG_HOME/storefront/config.yaml and is
// written with mode 0600. The storage passphrase is never written to disk.
package config
