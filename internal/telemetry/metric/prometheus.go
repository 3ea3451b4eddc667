package metric

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "storefront"

// Registry holds all client metrics.
type Registry struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RefreshTotal       *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
	RateLimitWaits     *prometheus.CounterVec
}

// NewRegistry creates a registry with the client metrics and the Go runtime
// collector registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Outbound HTTP requests by client, method and status code",
		}, []string{"client", "method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Outbound HTTP request latency",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"client", "method"}),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refresh_total",
			Help:      "Access token refresh attempts by outcome (success, failure, reused)",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Query cache lookups by result (hit, miss, stale)",
		}, []string{"result"}),
		CacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidated_entries_total",
			Help:      "Cache entries invalidated or dropped, by operation",
		}, []string{"op"}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions by target state",
		}, []string{"to"}),
		RateLimitWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests delayed by the client-side rate limiter",
		}, []string{"client"}),
	}

	reg.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.RefreshTotal,
		r.CacheLookups,
		r.CacheInvalidations,
		r.SessionTransitions,
		r.RateLimitWaits,
		collectors.NewGoCollector(),
	)

	return r
}

// Registerer exposes the underlying registry for other collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveRequest records one completed outbound request. code 0 means the
// request failed before a response arrived.
func (r *Registry) ObserveRequest(client, method string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	codeLabel := "error"
	if code > 0 {
		codeLabel = strconv.Itoa(code)
	}
	r.RequestsTotal.WithLabelValues(client, method, codeLabel).Inc()
	r.RequestDuration.WithLabelValues(client, method).Observe(elapsed.Seconds())
}

// IncRefresh records a refresh outcome.
func (r *Registry) IncRefresh(outcome string) {
	if r == nil {
		return
	}
	r.RefreshTotal.WithLabelValues(outcome).Inc()
}

// IncCacheLookup records a cache lookup result.
func (r *Registry) IncCacheLookup(result string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

// AddInvalidations records n entries affected by a cache operation.
func (r *Registry) AddInvalidations(op string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.CacheInvalidations.WithLabelValues(op).Add(float64(n))
}

// IncSessionTransition records a session state change.
func (r *Registry) IncSessionTransition(to string) {
	if r == nil {
		return
	}
	r.SessionTransitions.WithLabelValues(to).Inc()
}

// IncRateLimited records a request that had to wait for the limiter.
func (r *Registry) IncRateLimited(client string) {
	if r == nil {
		return
	}
	r.RateLimitWaits.WithLabelValues(client).Inc()
}

// WriteText writes every family in the Prometheus text format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Sample is one flattened metric value.
type Sample struct {
	Name   string  `json:"name"`
	Labels string  `json:"labels,omitempty"`
	Value  float64 `json:"value"`
}

// Samples flattens counters and gauges whose name starts with prefix. Histograms
// are reported by their sample count under <name>_count.
func (r *Registry) Samples(prefix string) ([]Sample, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			s := Sample{Name: name, Labels: formatLabels(m.GetLabel())}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				s.Value = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				s.Value = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				s.Name = name + "_count"
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, s)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	return strings.Join(parts, ",")
}
