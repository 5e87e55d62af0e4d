package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igtlctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "igtlctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	linkMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igtlctl",
			Subsystem: "link",
			Name:      "messages_total",
			Help:      "Messages moved over the link by direction and type.",
		},
		[]string{"direction", "type"},
	)
	linkBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igtlctl",
			Subsystem: "link",
			Name:      "bytes_total",
			Help:      "Bytes moved over the link by direction.",
		},
		[]string{"direction"},
	)
	linkDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igtlctl",
			Subsystem: "link",
			Name:      "dropped_total",
			Help:      "Inbound messages dropped before dispatch.",
		},
		[]string{"type", "reason"},
	)
	linkState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "igtlctl",
			Subsystem: "link",
			Name:      "state",
			Help:      "Connection state: 0 disconnected, 1 connecting, 2 connected.",
		},
		[]string{"link"},
	)
	linkEncodeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "igtlctl",
			Subsystem: "link",
			Name:      "send_tick_seconds",
			Help:      "Time spent encoding and writing one send tick.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .02, .05, .1},
		},
	)
)

// Directions used as metric labels.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, linkMessages, linkBytes, linkDropped, linkState, linkEncodeDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordMessage(direction, msgType string, size int) {
	RegisterMetrics()
	linkMessages.WithLabelValues(direction, msgType).Inc()
	linkBytes.WithLabelValues(direction).Add(float64(size))
}

func RecordDropped(msgType, reason string) {
	RegisterMetrics()
	linkDropped.WithLabelValues(msgType, reason).Inc()
}

func RecordState(link string, state int) {
	RegisterMetrics()
	linkState.WithLabelValues(link).Set(float64(state))
}

func RecordSendTick(duration time.Duration) {
	RegisterMetrics()
	linkEncodeDuration.Observe(duration.Seconds())
}
