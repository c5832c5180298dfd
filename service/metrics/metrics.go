package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// It is passed explicitly to every component that records metrics;
// a nil *Metrics means "don't record".
type Metrics struct {
	// Solana RPC
	solanaRPCCallsTotal      *prometheus.CounterVec
	solanaRPCCallDuration    *prometheus.HistogramVec
	solanaRPCSignaturesFound *prometheus.HistogramVec

	// Wallet views
	walletQueryFallbacks *prometheus.CounterVec
	historyRecordsParsed *prometheus.CounterVec

	// Transfers and airdrops
	transfersPreparedTotal *prometheus.CounterVec
	airdropsTotal          *prometheus.CounterVec
	airdropConfirmDuration *prometheus.HistogramVec

	// Workflow
	airdropWorkflowDuration *prometheus.HistogramVec
	airdropWorkflowTotal    *prometheus.CounterVec
	activityDuration        *prometheus.HistogramVec

	// Database
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCSignaturesFound: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_signatures_per_call",
				Help:    "Number of signatures returned per getSignaturesForAddress call",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"endpoint"},
		),

		walletQueryFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_query_fallbacks_total",
				Help: "Total number of wallet queries that degraded to a default value",
			},
			[]string{"query"},
		),
		historyRecordsParsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_history_records_total",
				Help: "Total number of history records by detail status",
			},
			[]string{"status"},
		),

		transfersPreparedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfers_prepared_total",
				Help: "Total number of transfer transactions assembled",
			},
			[]string{"kind", "status"},
		),
		airdropsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airdrops_total",
				Help: "Total number of airdrop requests by outcome",
			},
			[]string{"status"},
		),
		airdropConfirmDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airdrop_confirm_duration_seconds",
				Help:    "Time from airdrop request to confirmation",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),

		airdropWorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airdrop_workflow_duration_seconds",
				Help:    "Duration of airdrop workflow execution in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		airdropWorkflowTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airdrop_workflow_executions_total",
				Help: "Total number of airdrop workflow executions",
			},
			[]string{"status"},
		),
		activityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airdrop_activity_duration_seconds",
				Help:    "Duration of airdrop workflow activities in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"activity", "status"},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"kind", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"kind"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRPCSignaturesPerCall records the number of signatures fetched.
func (m *Metrics) RecordRPCSignaturesPerCall(endpoint string, count float64) {
	m.solanaRPCSignaturesFound.WithLabelValues(endpoint).Observe(count)
}

// Wallet view metric helpers

// RecordQueryFallback records a query that returned its default value.
func (m *Metrics) RecordQueryFallback(query string) {
	m.walletQueryFallbacks.WithLabelValues(query).Inc()
}

// RecordHistoryRecord records whether a history record carries full detail.
func (m *Metrics) RecordHistoryRecord(status string) {
	m.historyRecordsParsed.WithLabelValues(status).Inc()
}

// Transfer and airdrop metric helpers

// RecordTransferPrepared records an assembled (or rejected) transfer.
func (m *Metrics) RecordTransferPrepared(kind, status string) {
	m.transfersPreparedTotal.WithLabelValues(kind, status).Inc()
}

// RecordAirdrop records an airdrop outcome and, when known, how long confirmation took.
func (m *Metrics) RecordAirdrop(status string, duration float64) {
	m.airdropsTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		m.airdropConfirmDuration.WithLabelValues(status).Observe(duration)
	}
}

// Workflow metric helpers

// RecordWorkflowDuration records workflow execution duration.
func (m *Metrics) RecordWorkflowDuration(status string, duration float64) {
	m.airdropWorkflowDuration.WithLabelValues(status).Observe(duration)
	m.airdropWorkflowTotal.WithLabelValues(status).Inc()
}

// RecordActivityDuration records activity execution duration.
func (m *Metrics) RecordActivityDuration(activity, status string, duration float64) {
	m.activityDuration.WithLabelValues(activity, status).Observe(duration)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation. Subjects embed wallet
// addresses, so the event kind is used as the label instead.
func (m *Metrics) RecordNATSPublish(kind, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(kind, status).Inc()
	m.natsPublishDuration.WithLabelValues(kind).Observe(duration)
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
