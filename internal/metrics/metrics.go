package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meicho",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "meicho",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "route"},
	)

	mediaUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meicho",
			Subsystem: "media",
			Name:      "uploads_total",
			Help:      "Media uploads by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	mediaUploadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meicho",
			Subsystem: "media",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes written to the object store.",
		},
		[]string{"type"},
	)

	mediaCompensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meicho",
			Subsystem: "media",
			Name:      "compensations_total",
			Help:      "Uploaded objects removed after their media row could not be inserted.",
		},
		[]string{"success"},
	)

	orphanedObjects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meicho",
			Subsystem: "media",
			Name:      "orphaned_objects_total",
			Help:      "Objects left in storage without a media row.",
		},
		[]string{"reason"},
	)

	entryMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meicho",
			Subsystem: "entries",
			Name:      "mutations_total",
			Help:      "Entry store mutations by operation and result.",
		},
		[]string{"op", "success"},
	)

	pushNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meicho",
			Subsystem: "push",
			Name:      "notifications_total",
			Help:      "Push notifications by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	authCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meicho",
			Subsystem: "auth",
			Name:      "token_cache_total",
			Help:      "ID token lookups served from or missing the cache.",
		},
		[]string{"result"},
	)

	openStores = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "meicho",
			Subsystem: "entries",
			Name:      "open_stores",
			Help:      "Per-owner entry stores currently held in memory.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		mediaUploads,
		mediaUploadBytes,
		mediaCompensations,
		orphanedObjects,
		entryMutations,
		pushNotifications,
		authCache,
		openStores,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency keyed by the matched route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordUpload counts one media upload attempt. outcome is uploaded, failed or skipped.
func RecordUpload(mediaType, outcome string, size int64) {
	if mediaType == "" {
		mediaType = "unknown"
	}
	mediaUploads.WithLabelValues(mediaType, outcome).Inc()
	if outcome == "uploaded" && size > 0 {
		mediaUploadBytes.WithLabelValues(mediaType).Add(float64(size))
	}
}

func RecordCompensation(success bool) {
	mediaCompensations.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordOrphans(reason string, n int) {
	if n <= 0 {
		return
	}
	orphanedObjects.WithLabelValues(reason).Add(float64(n))
}

func RecordMutation(op string, err error) {
	entryMutations.WithLabelValues(op, strconv.FormatBool(err == nil)).Inc()
}

func SetOpenStores(n int) {
	openStores.Set(float64(n))
}

// RecordPush counts one push attempt. outcome is sent, failed or unregistered.
func RecordPush(kind, outcome string) {
	pushNotifications.WithLabelValues(kind, outcome).Inc()
}

func RecordAuthCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	authCache.WithLabelValues(result).Inc()
}
