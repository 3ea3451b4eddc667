package metric

import "github.com/prometheus/client_golang/prometheus"

// StateSource reports live client state at scrape time.
type StateSource interface {
	// CacheEntries returns the number of cache entries.
	CacheEntries() int
	// SessionState returns the current session state name.
	SessionState() string
}

// StateCollector exports a StateSource as gauges.
type StateCollector struct {
	src          StateSource
	cacheEntries *prometheus.Desc
	session      *prometheus.Desc
}

// NewStateCollector creates a collector for src.
func NewStateCollector(src StateSource) *StateCollector {
	return &StateCollector{
		src: src,
		cacheEntries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Entries currently held by the query cache",
			nil, nil,
		),
		session: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "state"),
			"Current session state (1 for the active state)",
			[]string{"state"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheEntries
	ch <- c.session
}

// Collect implements prometheus.Collector.
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.cacheEntries, prometheus.GaugeValue, float64(c.src.CacheEntries()))
	ch <- prometheus.MustNewConstMetric(c.session, prometheus.GaugeValue, 1, c.src.SessionState())
}

// RegisterState registers a StateCollector for src.
func (r *Registry) RegisterState(src StateSource) error {
	if r == nil {
		return nil
	}
	return r.registry.Register(NewStateCollector(src))
}
