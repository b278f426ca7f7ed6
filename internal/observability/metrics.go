package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Range request outcomes.
const (
	RangeServed     = "served"
	RangePredicted  = "predicted"
	RangeTerminator = "terminator"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usbtotal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "usbtotal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	rangeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usbtotal",
			Subsystem: "transfer",
			Name:      "range_requests_total",
			Help:      "Range requests received from the peer, by outcome.",
		},
		[]string{"result"},
	)
	rangeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "usbtotal",
			Subsystem: "transfer",
			Name:      "range_duration_seconds",
			Help:      "Time to read and send one range response.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)
	bytesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "usbtotal",
			Subsystem: "transfer",
			Name:      "bytes_sent_total",
			Help:      "File bytes written to the peer.",
		},
	)
	filesServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "usbtotal",
			Subsystem: "transfer",
			Name:      "files_served_total",
			Help:      "Catalog entries the peer finished with a terminator.",
		},
	)
	sessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usbtotal",
			Subsystem: "session",
			Name:      "runs_total",
			Help:      "Session runs, by outcome.",
		},
		[]string{"outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			rangeRequests, rangeDuration, bytesSent, filesServed, sessions,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordRange counts one range request. n and duration are ignored for
// terminators.
func RecordRange(result string, n int, duration time.Duration) {
	RegisterMetrics()
	rangeRequests.WithLabelValues(result).Inc()
	if result == RangeTerminator {
		return
	}
	bytesSent.Add(float64(n))
	rangeDuration.Observe(duration.Seconds())
}

func RecordFileServed() {
	RegisterMetrics()
	filesServed.Inc()
}

func RecordSession(success bool) {
	RegisterMetrics()
	outcome := "completed"
	if !success {
		outcome = "failed"
	}
	sessions.WithLabelValues(outcome).Inc()
}
