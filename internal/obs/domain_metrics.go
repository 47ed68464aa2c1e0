package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SelectionEventsTotal counts option selector actions by outcome.
	SelectionEventsTotal *prometheus.CounterVec
	// FavoriteToggleTotal counts wishlist toggles, including rollbacks.
	FavoriteToggleTotal *prometheus.CounterVec
	// LikeToggleTotal counts game board like toggles.
	LikeToggleTotal *prometheus.CounterVec
	// CartAddTotal counts add-to-cart submissions.
	CartAddTotal *prometheus.CounterVec
	// UpstreamRequestsTotal counts calls to the shop backend per endpoint.
	UpstreamRequestsTotal *prometheus.CounterVec
	// UpstreamLatency records upstream call latency in milliseconds.
	UpstreamLatency *prometheus.HistogramVec
	// ViewCacheTotal counts product view cache lookups.
	ViewCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SelectionEventsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_events_total",
			Help:      "Option selection actions by action and result.",
		}, []string{"action", "result"}))
		FavoriteToggleTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favorite_toggle_total",
			Help:      "Favorite toggles by result (ok, rolled_back).",
		}, []string{"result"}))
		LikeToggleTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "like_toggle_total",
			Help:      "Game board like toggles by result.",
		}, []string{"result"}))
		CartAddTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_add_total",
			Help:      "Add-to-cart submissions by result.",
		}, []string{"result"}))
		UpstreamRequestsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Shop backend requests by endpoint and result.",
		}, []string{"endpoint", "result"}))
		UpstreamLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_ms",
			Help:      "Shop backend request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"endpoint"}))
		ViewCacheTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_total",
			Help:      "Product view cache lookups by kind and result.",
		}, []string{"kind", "result"}))
	})
}

// Inc increments a labelled counter when domain metrics are registered.
func Inc(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

// Observe records a latency sample when domain metrics are registered.
func Observe(vec *prometheus.HistogramVec, ms float64, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Observe(ms)
}
