// Package metric provides Prometheus metrics for the storefront client.
//
//   - prometheus.go: the Registry of client metrics and its exposition
//   - collector.go: a collector that samples live state at scrape time
//
// A short-lived CLI process has no scrape endpoint, so the registry is read
// in-process: `storefront-cli system metrics` gathers and prints it, and the
// shell keeps it across commands.
//
// All Registry methods are safe on a nil receiver, so components can run
// without metrics.
package metric
