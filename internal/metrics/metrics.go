// Package metrics registers the Prometheus collectors shared by the fetch
// layer, the vendor adapters and the sync orchestrator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinylscout_fetch_requests_total",
			Help: "Vendor HTTP attempts by outcome class.",
		},
		[]string{"vendor", "class"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vinylscout_fetch_duration_seconds",
			Help:    "Duration of vendor HTTP attempts.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"vendor"},
	)
	vendorResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinylscout_vendor_results_total",
			Help: "Vendor adapter results by outcome (offer or reason code).",
		},
		[]string{"vendor", "outcome"},
	)
	syncProductsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinylscout_sync_products_total",
			Help: "Products handled by sync runs by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(fetchRequestsTotal)
	prometheus.MustRegister(fetchDuration)
	prometheus.MustRegister(vendorResultsTotal)
	prometheus.MustRegister(syncProductsTotal)
}

// RecordFetch counts one HTTP attempt. class is either a status class from
// ClassifyStatus or a failure class such as "timeout" or "blocked".
func RecordFetch(vendor, class string, duration time.Duration) {
	vendor = labelOrUnknown(vendor)
	fetchRequestsTotal.WithLabelValues(vendor, class).Inc()
	fetchDuration.WithLabelValues(vendor).Observe(duration.Seconds())
}

// RecordVendorResult counts one adapter outcome.
func RecordVendorResult(vendor, outcome string) {
	vendorResultsTotal.WithLabelValues(labelOrUnknown(vendor), labelOrUnknown(outcome)).Inc()
}

// RecordSyncProduct counts one product handled by a sync run.
func RecordSyncProduct(result string) {
	syncProductsTotal.WithLabelValues(labelOrUnknown(result)).Inc()
}

// ClassifyStatus maps an HTTP status code to its class label.
func ClassifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	default:
		return "unknown"
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
