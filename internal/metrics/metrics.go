package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversion kinds
const (
	KindAudio = "audio"
	KindVideo = "video"
)

// Conversion results
const (
	ResultSuccess     = "success"
	ResultFailed      = "failed"
	ResultPassthrough = "passthrough"
)

var (
	// Conversion Metrics
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaconv_conversions_total",
			Help: "Total number of media conversions",
		},
		[]string{"kind", "result"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaconv_conversion_duration_seconds",
			Help:    "Media conversion duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"kind"},
	)

	ConversionInputBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaconv_conversion_input_bytes",
			Help:    "Size of conversion inputs in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 14), // 16KB to 128MB
		},
		[]string{"kind"},
	)

	ConversionOutputBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaconv_conversion_output_bytes",
			Help:    "Size of conversion outputs in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 14),
		},
		[]string{"kind"},
	)

	// Engine Metrics
	EngineLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaconv_engine_loads_total",
			Help: "Total number of transcoding engine initializations",
		},
		[]string{"result"},
	)

	EngineLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediaconv_engine_load_duration_seconds",
			Help:    "Transcoding engine initialization duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Export Metrics
	ExportItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaconv_export_items_total",
			Help: "Total number of export archive items by outcome",
		},
		[]string{"kind", "result"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaconv_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaconv_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaconv_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaconv_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaconv_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordConversion records a finished conversion
func RecordConversion(kind, result string, duration float64, inputBytes, outputBytes int) {
	ConversionsTotal.WithLabelValues(kind, result).Inc()
	ConversionDuration.WithLabelValues(kind).Observe(duration)
	ConversionInputBytes.WithLabelValues(kind).Observe(float64(inputBytes))
	if result != ResultFailed {
		ConversionOutputBytes.WithLabelValues(kind).Observe(float64(outputBytes))
	}
}

// RecordEngineLoad records a transcoding engine initialization
func RecordEngineLoad(result string, duration float64) {
	EngineLoadsTotal.WithLabelValues(result).Inc()
	EngineLoadDuration.Observe(duration)
}

// RecordExportItem records the outcome of one export archive item
func RecordExportItem(kind, result string) {
	ExportItemsTotal.WithLabelValues(kind, result).Inc()
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
