// Package confloader loads layered configuration with koanf.
//
// Sources are applied in increasing priority:
//
//  1. Values already present in the target struct (defaults)
//  2. YAML configuration file
//  3. Environment variables (STOREFRONT_ prefix)
//  4. Explicit overrides, typically parsed command-line flags
//
// Environment variables use a double underscore to separate nested keys so
// that snake_case field names survive the mapping:
//
//	STOREFRONT_API__BASE_URL -> api.base_url
//	STOREFRONT_LOG_LEVEL     -> log_level
//
// A Watcher built on fsnotify reports edits to the configuration file so a
// long-running shell can pick up changes without restarting.
package confloader
