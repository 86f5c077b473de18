package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "isoview",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "isoview",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "isoview",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Isochrone pipeline
	IsochroneFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "isoview",
		Subsystem: "isochrone",
		Name:      "fetches_total",
		Help:      "Isochrone fetches by outcome (success, error)",
	}, []string{"result"})

	IsochroneFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "isoview",
		Subsystem: "isochrone",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of isochrone fetches against the travel-time API",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	IsochroneFetchesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "isoview",
		Subsystem: "isochrone",
		Name:      "fetches_skipped_total",
		Help:      "State changes that found a fetch already in flight",
	})

	IsochroneFollowUps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "isoview",
		Subsystem: "isochrone",
		Name:      "follow_up_fetches_total",
		Help:      "Fetches issued after an in-flight fetch settled with newer state pending",
	})

	// Place autocomplete
	PlaceSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "isoview",
		Subsystem: "places",
		Name:      "searches_total",
		Help:      "Place searches by outcome (success, error, stale)",
	}, []string{"result"})

	SearchKeystrokes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "isoview",
		Subsystem: "places",
		Name:      "keystrokes_total",
		Help:      "Search inputs received before debouncing",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "isoview",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "isoview",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "isoview",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
