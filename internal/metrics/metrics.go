package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the logbook agent.
// Construct it once at startup; services accept a nil registry and skip
// instrumentation, which keeps unit tests free of duplicate-registration
// panics on the default registerer.
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// Logbook Metrics
	PunchesTotal          prometheus.CounterVec
	LegAdvancementsTotal  prometheus.Counter
	InvariantRepairsTotal prometheus.Counter
	TripsEndedTotal       prometheus.Counter

	// Sync Metrics
	SyncEvaluationsTotal   prometheus.Counter
	SyncTriggersCoalesced  prometheus.Counter
	SyncMismatchesTotal    prometheus.Counter
	SnapshotPushesTotal    prometheus.CounterVec
	StateReportsSuppressed prometheus.CounterVec
	SyncMessagesTotal      prometheus.CounterVec

	// Directory Metrics
	AirportLookupsTotal prometheus.CounterVec
	LookupDuration      prometheus.HistogramVec

	// Store Metrics
	StoreQueriesTotal prometheus.CounterVec
	StoreQueryDur     prometheus.HistogramVec
}

// NewMetricsRegistry initializes and returns a new MetricsRegistry with all metrics
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propilot_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propilot_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "propilot_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Logbook Metrics
		PunchesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propilot_punches_total",
				Help: "Total OOOI punches applied by field",
			},
			[]string{"field"},
		),
		LegAdvancementsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "propilot_leg_advancements_total",
				Help: "Total automatic leg completions that activated a following leg",
			},
		),
		InvariantRepairsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "propilot_invariant_repairs_total",
				Help: "Times the single-active-leg invariant had to be repaired",
			},
		),
		TripsEndedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "propilot_trips_ended_total",
				Help: "Trips explicitly closed by the pilot",
			},
		),

		// Sync Metrics
		SyncEvaluationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "propilot_sync_evaluations_total",
				Help: "Debounced sync state evaluations executed",
			},
		),
		SyncTriggersCoalesced: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "propilot_sync_triggers_coalesced_total",
				Help: "Sync triggers absorbed into an already pending evaluation",
			},
		),
		SyncMismatchesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "propilot_sync_mismatches_total",
				Help: "Evaluations that found local and remote active legs diverged",
			},
		),
		SnapshotPushesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propilot_snapshot_pushes_total",
				Help: "Authoritative leg snapshots pushed to the peer by reason",
			},
			[]string{"reason"},
		),
		StateReportsSuppressed: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propilot_state_reports_suppressed_total",
				Help: "State reports withheld by cause (unchanged, rate_limited)",
			},
			[]string{"cause"},
		),
		SyncMessagesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propilot_sync_messages_total",
				Help: "Sync messages by direction and type",
			},
			[]string{"direction", "type"},
		),

		// Directory Metrics
		AirportLookupsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propilot_airport_lookups_total",
				Help: "Airport directory lookups by outcome (cache_hit, db_hit, miss, error)",
			},
			[]string{"outcome"},
		),
		LookupDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propilot_airport_lookup_duration_seconds",
				Help:    "Airport directory lookup time in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"source"},
		),

		// Store Metrics
		StoreQueriesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propilot_store_queries_total",
				Help: "Trip store operations by type",
			},
			[]string{"query_type"},
		),
		StoreQueryDur: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propilot_store_query_duration_seconds",
				Help:    "Trip store operation time in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"query_type"},
		),
	}
}
