package security

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// StoreLatency can be used by store implementations to record
	// operation latency.
	StoreLatency *prometheus.HistogramVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// ChatUpstreamDuration tracks upstream model call latency per provider.
	ChatUpstreamDuration *prometheus.HistogramVec

	// ChatUpstreamFailures counts upstream model call failures per provider.
	ChatUpstreamFailures *prometheus.CounterVec

	authFailuresTotal *prometheus.CounterVec
)

var validLabelKey = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseMetricsLabels parses a comma-separated list of key=value pairs into
// Prometheus labels. Values support ${VAR} / $VAR environment variable
// expansion. Returns nil for an empty string.
func ParseMetricsLabels(s string) (prometheus.Labels, error) {
	s = os.Expand(s, os.Getenv)
	if s == "" {
		return nil, nil
	}
	labels := prometheus.Labels{}
	for _, pair := range strings.Split(s, ",") {
		idx := strings.IndexByte(pair, '=')
		if idx < 0 {
			return nil, fmt.Errorf("invalid label %q: expected key=value", pair)
		}
		k, v := pair[:idx], pair[idx+1:]
		if !validLabelKey.MatchString(k) {
			return nil, fmt.Errorf("invalid label key %q: must match [a-zA-Z_][a-zA-Z0-9_]*", k)
		}
		labels[k] = v
	}
	return labels, nil
}

var initMetricsOnce sync.Once

// InitMetrics registers all Prometheus metrics with the given constant
// labels. Safe to call multiple times; only the first call registers.
func InitMetrics(constLabels prometheus.Labels) {
	initMetricsOnce.Do(func() {
		initMetricsInner(constLabels)
	})
}

func initMetricsInner(constLabels prometheus.Labels) {
	reg := prometheus.WrapRegistererWith(constLabels, prometheus.DefaultRegisterer)
	f := promauto.With(reg)

	httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "om_gateway_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "om_gateway_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	StoreLatency = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "om_gateway_store_latency_seconds",
			Help:    "Store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CacheHitsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "om_gateway_cache_hits_total",
		Help: "Total recall cache hits",
	})

	CacheMissesTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "om_gateway_cache_misses_total",
		Help: "Total recall cache misses",
	})

	ChatUpstreamDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "om_gateway_chat_upstream_duration_seconds",
			Help:    "Upstream chat model call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ChatUpstreamFailures = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "om_gateway_chat_upstream_failures_total",
			Help: "Total upstream chat model call failures",
		},
		[]string{"provider"},
	)

	authFailuresTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "om_gateway_auth_failures_total",
			Help: "Total admin-key auth failures",
		},
		[]string{"reason"},
	)
}

// AuthFailuresTotal records an auth failure with the given reason
// ("missing" or "invalid"). No-op before InitMetrics.
func AuthFailuresTotal(reason string) {
	if authFailuresTotal != nil {
		authFailuresTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveStoreLatency records a store operation duration. No-op before
// InitMetrics.
func ObserveStoreLatency(operation string, d time.Duration) {
	if StoreLatency != nil {
		StoreLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// MetricsMiddleware records HTTP request metrics for Prometheus.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpRequestsTotal == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method).Observe(duration.Seconds())
	}
}
