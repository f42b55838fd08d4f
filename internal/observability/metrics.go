// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingest metrics
	EventsReceived   *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec
	IngestQueueDepth prometheus.Gauge

	// Classification metrics
	Classifications   *prometheus.CounterVec
	ProcessingLatency prometheus.Histogram

	// Delivery metrics
	Deliveries         *prometheus.CounterVec
	SendLatency        *prometheus.HistogramVec
	DedupPruned        prometheus.Counter
	JournalErrors      prometheus.Counter
	LastAlertDelivered prometheus.Gauge

	// Price and metadata metrics
	PriceSourceErrors *prometheus.CounterVec
	PriceResolutions  *prometheus.CounterVec
	SOLPriceUSD       prometheus.Gauge
	MetadataLookups   *prometheus.CounterVec
	MetadataSources   *prometheus.CounterVec

	// Solana metrics
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "whale_alerts"
	}

	return &Metrics{
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_received_total",
			Help:      "Total number of transaction events received by source",
		}, []string{"source"}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped before processing",
		}, []string{"reason"}),
		IngestQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Events waiting for a worker",
		}),

		Classifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "results_total",
			Help:      "Classification results: accepted or the reject reason",
		}, []string{"result"}),
		ProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "processing_latency_seconds",
			Help:      "Time from event dequeue to fan-out completion",
			Buckets:   prometheus.DefBuckets,
		}),

		Deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "outcomes_total",
			Help:      "Per-subscriber delivery outcomes by status",
		}, []string{"status"}),
		SendLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "send_latency_seconds",
			Help:      "Transport send latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"transport"}),
		DedupPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "dedup_pruned_total",
			Help:      "Total number of dedup markers removed by retention",
		}),
		JournalErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "journal_errors_total",
			Help:      "Total number of failed trade journal writes",
		}),
		LastAlertDelivered: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_alert_delivered_timestamp",
			Help:      "Unix timestamp of the last delivered alert",
		}),

		PriceSourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "source_errors_total",
			Help:      "Total number of price source failures",
		}, []string{"source"}),
		PriceResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "resolutions_total",
			Help:      "Price refreshes by the step that answered",
		}, []string{"step"}),
		SOLPriceUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "sol_usd",
			Help:      "Last resolved SOL/USD reference price",
		}),
		MetadataLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "cache_lookups_total",
			Help:      "Metadata cache lookups by result (hit or miss)",
		}, []string{"result"}),
		MetadataSources: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "resolutions_total",
			Help:      "Metadata resolutions by the source that answered",
		}, []string{"source"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventReceived counts an incoming event.
func RecordEventReceived(source string) {
	DefaultMetrics.EventsReceived.WithLabelValues(source).Inc()
}

// RecordEventDropped counts an event that never reached a worker.
func RecordEventDropped(reason string) {
	DefaultMetrics.EventsDropped.WithLabelValues(reason).Inc()
}

// SetIngestQueueDepth updates the ingest queue gauge.
func SetIngestQueueDepth(n int) {
	DefaultMetrics.IngestQueueDepth.Set(float64(n))
}

// RecordClassification counts a classifier result.
func RecordClassification(result string) {
	DefaultMetrics.Classifications.WithLabelValues(result).Inc()
}

// ObserveProcessing records end-to-end processing time of one event.
func ObserveProcessing(seconds float64) {
	DefaultMetrics.ProcessingLatency.Observe(seconds)
}

// RecordDelivery counts a per-subscriber outcome.
func RecordDelivery(status string) {
	DefaultMetrics.Deliveries.WithLabelValues(status).Inc()
}

// ObserveSendLatency records a transport send.
func ObserveSendLatency(transport string, seconds float64) {
	DefaultMetrics.SendLatency.WithLabelValues(transport).Observe(seconds)
}

// RecordAlertDelivered stamps the last-delivered gauge.
func RecordAlertDelivered(unixSeconds int64) {
	DefaultMetrics.LastAlertDelivered.Set(float64(unixSeconds))
}

// RecordDedupPruned counts markers removed by retention.
func RecordDedupPruned(n int64) {
	DefaultMetrics.DedupPruned.Add(float64(n))
}

// RecordJournalError counts a failed journal write.
func RecordJournalError() {
	DefaultMetrics.JournalErrors.Inc()
}

// RecordPriceSourceError counts a failed price source call.
func RecordPriceSourceError(source string) {
	DefaultMetrics.PriceSourceErrors.WithLabelValues(source).Inc()
}

// RecordPriceResolved counts a price refresh by the step that answered.
func RecordPriceResolved(step string) {
	DefaultMetrics.PriceResolutions.WithLabelValues(step).Inc()
}

// SetSOLPrice updates the reference price gauge.
func SetSOLPrice(price float64) {
	DefaultMetrics.SOLPriceUSD.Set(price)
}

// RecordMetadataLookup counts a cache hit or miss.
func RecordMetadataLookup(result string) {
	DefaultMetrics.MetadataLookups.WithLabelValues(result).Inc()
}

// RecordMetadataSource counts a resolution by the source that answered.
func RecordMetadataSource(source string) {
	DefaultMetrics.MetadataSources.WithLabelValues(source).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
