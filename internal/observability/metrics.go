package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MediaUploadsTotal counts relay uploads by kind and outcome.
	MediaUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_media_uploads_total",
		Help: "Total number of media relay uploads by kind and status",
	}, []string{"kind", "status"})

	// MediaUploadDuration records relay upload latency by kind.
	MediaUploadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_media_upload_duration_seconds",
		Help:    "Media relay upload latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// PostsCreatedTotal counts persisted posts.
	PostsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_posts_created_total",
		Help: "Total number of posts created",
	})

	// PostInteractionsTotal counts likes, unlikes, comments and views.
	PostInteractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_interactions_total",
		Help: "Total number of post interactions by action",
	}, []string{"action"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ActivityConnections is the gauge of open activity stream sockets.
	ActivityConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_activity_connections",
		Help: "Number of open activity stream WebSocket connections",
	})

	// ActivityDrops counts events dropped because a client could not keep up.
	ActivityDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_activity_backpressure_drops_total",
		Help: "Total number of activity events dropped due to backpressure",
	})
)

// ObserveUpload records the outcome and latency of one relay upload.
func ObserveUpload(kind string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	MediaUploadsTotal.WithLabelValues(kind, status).Inc()
	MediaUploadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
