// Package app assembles a storefront client runtime from configuration:
// logger, metrics, token storage, HTTP clients, cache and services. The
// CLI builds one App per process (or per shell session) and closes it on
// exit.
package app
