package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	ItemsReceived    = prometheus.NewCounter(prometheus.CounterOpts{Name: "vidbridge_items_received_total", Help: "Inbound message items seen"})
	ItemsSkipped     = prometheus.NewCounter(prometheus.CounterOpts{Name: "vidbridge_items_skipped_total", Help: "Items skipped (not a video, already handled, unsupported media)"})
	ItemsFailed      = prometheus.NewCounter(prometheus.CounterOpts{Name: "vidbridge_items_failed_total", Help: "Items that ended in a failure outcome"})
	UploadsSucceeded = prometheus.NewCounter(prometheus.CounterOpts{Name: "vidbridge_uploads_succeeded_total", Help: "Uploads confirmed by the hosting platform"})
	UploadRetries    = prometheus.NewCounter(prometheus.CounterOpts{Name: "vidbridge_upload_retries_total", Help: "Transient upload failures that were retried"})
	UploadDuration   = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vidbridge_upload_duration_seconds",
		Help:    "Wall time of one upload call",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			ItemsReceived,
			ItemsSkipped,
			ItemsFailed,
			UploadsSucceeded,
			UploadRetries,
			UploadDuration,
		)
	})
	return promhttp.Handler()
}
