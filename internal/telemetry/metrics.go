package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ProviderErrors   *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	SellerGroups     prometheus.Histogram
	OptionsReturned  *prometheus.CounterVec
	TokenCache       *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_requests_total",
				Help: "Total number of requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_request_duration_seconds",
				Help:    "Request duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_provider_errors_total",
				Help: "Total upstream provider errors by provider and error type",
			},
			[]string{"provider", "error_type"},
		),
		ProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_provider_duration_seconds",
				Help:    "Upstream provider call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		SellerGroups: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "checkout_seller_groups",
				Help:    "Number of seller groups per shipping options request",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		OptionsReturned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_delivery_options_total",
				Help: "Delivery options returned by kind",
			},
			[]string{"kind"},
		),
		TokenCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_token_cache_lookups_total",
				Help: "Courier access token cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordProviderCall records the latency of one upstream call.
func (m *Metrics) RecordProviderCall(provider string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ProviderDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordProviderError records an upstream error metric.
func (m *Metrics) RecordProviderError(provider, errorType string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordSellerGroups records how many seller groups a request produced.
func (m *Metrics) RecordSellerGroups(n int) {
	if m == nil {
		return
	}
	m.SellerGroups.Observe(float64(n))
}

// RecordOptions counts delivery options of one kind.
func (m *Metrics) RecordOptions(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.OptionsReturned.WithLabelValues(kind).Add(float64(n))
}

// ObserveTokenCache records a token cache lookup.
func (m *Metrics) ObserveTokenCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.TokenCache.WithLabelValues(result).Inc()
}
