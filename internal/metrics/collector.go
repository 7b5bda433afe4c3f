package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector registers and records all service metrics.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Imaging metrics
	imagingRequestsTotal   *prometheus.CounterVec
	imagingRequestDuration *prometheus.HistogramVec
	imagingImagesTotal     *prometheus.CounterVec
	imagingTokensTotal     *prometheus.CounterVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// History store metrics
	historyNodesTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers all metric vectors on reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.imagingRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imaging_requests_total",
			Help:      "Total number of upstream imaging requests",
		},
		[]string{"provider", "operation", "status"},
	)

	c.imagingRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "imaging_request_duration_seconds",
			Help:      "Upstream imaging request duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "operation"},
	)

	c.imagingImagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imaging_images_total",
			Help:      "Total number of images returned by upstreams",
		},
		[]string{"provider", "operation"},
	)

	c.imagingTokensTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imaging_tokens_total",
			Help:      "Total number of tokens reported by upstreams",
		},
		[]string{"provider", "type"}, // type: prompt, output
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	c.historyNodesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_nodes_total",
			Help:      "Total number of history nodes written",
		},
		[]string{"kind"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordImagingRequest records one upstream imaging call.
func (c *Collector) RecordImagingRequest(provider, operation, status string, duration time.Duration, images, promptTokens, outputTokens int) {
	c.imagingRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	c.imagingRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
	if images > 0 {
		c.imagingImagesTotal.WithLabelValues(provider, operation).Add(float64(images))
	}
	if promptTokens > 0 {
		c.imagingTokensTotal.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if outputTokens > 0 {
		c.imagingTokensTotal.WithLabelValues(provider, "output").Add(float64(outputTokens))
	}
}

// RecordCacheHit records a cache hit for the given tier.
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss for the given tier.
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordHistoryNode records one persisted history node.
func (c *Collector) RecordHistoryNode(kind string) {
	c.historyNodesTotal.WithLabelValues(kind).Inc()
}

// statusClass folds an HTTP status code into its class label (2xx, 4xx...).
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
