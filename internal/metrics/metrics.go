package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chzzkdl_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Metadata Metrics
	MetadataFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_metadata_fetches_total",
			Help: "Total number of metadata fetches",
		},
		[]string{"kind", "status"},
	)

	StaleResultsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chzzkdl_stale_results_dropped_total",
			Help: "Metadata results discarded because the reference changed",
		},
	)

	// Download Metrics
	DownloadsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_downloads_started_total",
			Help: "Total number of download sessions started",
		},
		[]string{"kind"},
	)

	DownloadsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_downloads_completed_total",
			Help: "Total number of finished download sessions",
		},
		[]string{"kind", "status"},
	)

	DownloadsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chzzkdl_downloads_in_progress",
			Help: "Number of download sessions currently running",
		},
	)

	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chzzkdl_download_duration_seconds",
			Help:    "Download session duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5 hours
		},
		[]string{"kind"},
	)

	SegmentsDownloadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chzzkdl_segments_downloaded_total",
			Help: "Total number of media segments fetched",
		},
	)

	BytesDownloadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_bytes_downloaded_total",
			Help: "Total bytes fetched from the source platform",
		},
		[]string{"kind"},
	)

	RemuxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chzzkdl_remux_duration_seconds",
			Help:    "ffmpeg remux duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// Dependency and Credential Metrics
	DependencyInstallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_dependency_installs_total",
			Help: "Total number of ffmpeg install attempts",
		},
		[]string{"status"},
	)

	CredentialSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_credential_saves_total",
			Help: "Total number of credential saves",
		},
		[]string{"source", "status"},
	)

	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_webhook_deliveries_total",
			Help: "Total number of download outcome webhook deliveries",
		},
		[]string{"event", "status"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chzzkdl_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordMetadataFetch records the outcome of a metadata fetch
func RecordMetadataFetch(kind string, success bool) {
	MetadataFetchesTotal.WithLabelValues(kind, statusLabel(success)).Inc()
}

// RecordDownloadStarted records a new download session
func RecordDownloadStarted(kind string) {
	DownloadsStartedTotal.WithLabelValues(kind).Inc()
	DownloadsInProgress.Inc()
}

// RecordDownloadCompleted records the end of a download session
func RecordDownloadCompleted(kind string, success bool, duration float64) {
	DownloadsCompletedTotal.WithLabelValues(kind, statusLabel(success)).Inc()
	DownloadDuration.WithLabelValues(kind).Observe(duration)
	DownloadsInProgress.Dec()
}

// RecordSegment records one fetched media segment
func RecordSegment(bytes int64) {
	SegmentsDownloadedTotal.Inc()
	BytesDownloadedTotal.WithLabelValues("segment").Add(float64(bytes))
}

// RecordStorageOperation records storage operation metrics
func RecordStorageOperation(operation, status string, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordDatabaseOperation records database operation metrics
func RecordDatabaseOperation(operation, status string) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error occurrence
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
