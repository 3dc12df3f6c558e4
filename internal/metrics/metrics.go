package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the synchronizer.
type Metrics struct {
	registry                 *prometheus.Registry
	providerRequestsTotal    prometheus.Counter
	providerErrorsTotal      prometheus.Counter
	tokenRefreshesTotal      prometheus.Counter
	syncsTotal               prometheus.Counter
	transitionsTotal         *prometheus.CounterVec
	recordingsFinalizedTotal prometheus.Counter
	activeSessions           prometheus.Gauge
}

// New creates and registers Prometheus metrics for the synchronizer.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	providerRequestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_provider_requests_total",
		Help: "Total number of HTTP requests sent to the streaming provider",
	})
	providerErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_provider_errors_total",
		Help: "Total number of provider calls that failed",
	})
	tokenRefreshesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_token_refreshes_total",
		Help: "Total number of successful OAuth token refreshes",
	})
	syncsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_syncs_total",
		Help: "Total number of upcoming-broadcast sync runs",
	})
	transitionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_transitions_total",
		Help: "Total number of local lifecycle transitions, by target status",
	}, []string{"to"})
	recordingsFinalizedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_recordings_finalized_total",
		Help: "Total number of recordings confirmed processed and cataloged",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_active_sessions",
		Help: "Number of broadcast records in scheduled or live state",
	})

	registry.MustRegister(
		providerRequestsTotal,
		providerErrorsTotal,
		tokenRefreshesTotal,
		syncsTotal,
		transitionsTotal,
		recordingsFinalizedTotal,
		activeSessions,
	)

	return &Metrics{
		registry:                 registry,
		providerRequestsTotal:    providerRequestsTotal,
		providerErrorsTotal:      providerErrorsTotal,
		tokenRefreshesTotal:      tokenRefreshesTotal,
		syncsTotal:               syncsTotal,
		transitionsTotal:         transitionsTotal,
		recordingsFinalizedTotal: recordingsFinalizedTotal,
		activeSessions:           activeSessions,
	}
}

// IncProviderRequests increments the provider request counter.
func (m *Metrics) IncProviderRequests() {
	m.providerRequestsTotal.Inc()
}

// IncProviderErrors increments the provider error counter.
func (m *Metrics) IncProviderErrors() {
	m.providerErrorsTotal.Inc()
}

// IncTokenRefreshes increments the successful token refresh counter.
func (m *Metrics) IncTokenRefreshes() {
	m.tokenRefreshesTotal.Inc()
}

// IncSyncs increments the sync run counter.
func (m *Metrics) IncSyncs() {
	m.syncsTotal.Inc()
}

// IncTransition counts a local lifecycle transition into the given status.
func (m *Metrics) IncTransition(to string) {
	m.transitionsTotal.WithLabelValues(to).Inc()
}

// IncRecordingsFinalized increments the finalized recordings counter.
func (m *Metrics) IncRecordingsFinalized() {
	m.recordingsFinalizedTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
