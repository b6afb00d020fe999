package metrics

import (
	"net/http"
	"time"
)

// Metrics is the interface of the collectors used by the proxy and by the
// filters.
type Metrics interface {
	MeasureSince(key string, start time.Time)
	IncCounter(key string)
	IncCounterBy(key string, value int64)
	MeasureServe(routeID, method string, code int, start time.Time)
	IncRoutingFailures()
	IncErrorsBackend(routeID string)
	RegisterHandler(path string, mux *http.ServeMux)
}

// Options for initializing metrics collection.
type Options struct {
	// Common prefix for the keys of the different collected metrics.
	Prefix string

	// If set, Go runtime and process metrics are collected in addition to
	// the http traffic metrics.
	EnableRuntimeMetrics bool

	// Buckets used for the duration histograms. When not set, the
	// prometheus default buckets are used.
	HistogramBuckets []float64
}
