package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poster upload outcomes.
const (
	UploadAccepted     = "accepted"
	UploadRejectedType = "rejected_type"
	UploadRejectedSize = "rejected_size"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigmap_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gigmap_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	PosterUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigmap_poster_uploads_total",
			Help: "Poster uploads by outcome",
		},
		[]string{"outcome"},
	)

	PosterBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gigmap_poster_bytes_total",
			Help: "Bytes written to the upload directory",
		},
	)
)

// RecordAPIRequest records one finished request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPosterUpload counts an upload attempt and the bytes kept for it.
func RecordPosterUpload(outcome string, size int64) {
	PosterUploadsTotal.WithLabelValues(outcome).Inc()
	if size > 0 {
		PosterBytesTotal.Add(float64(size))
	}
}

// RegisterDBStats exposes database/sql pool statistics (open, in use, wait count...).
func RegisterDBStats(db *sql.DB, name string) error {
	return prometheus.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
