package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/afpfs/pkg/metrics"
)

// connectionMetrics is the Prometheus-backed metrics.ConnectionMetrics.
type connectionMetrics struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	tickles          prometheus.Counter
	attentions       prometheus.Counter
	bytesTransferred *prometheus.CounterVec
	pendingRequests  prometheus.Gauge
	connectionsClosed *prometheus.CounterVec
}

// NewConnectionMetrics returns a Prometheus-backed ConnectionMetrics, or nil
// if metrics.InitRegistry has not been called.
func NewConnectionMetrics() metrics.ConnectionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &connectionMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "afpfs_connection_requests_total",
				Help: "Total AFP commands sent by command type and result code",
			},
			[]string{"command", "result_code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "afpfs_connection_request_duration_milliseconds",
				Help:    "Round-trip time for AFP commands by command type",
				Buckets: []float64{0.5, 1, 5, 10, 50, 100, 500, 1000, 5000},
			},
			[]string{"command"},
		),
		tickles: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "afpfs_connection_tickles_total",
				Help: "Total DSI_TICKLE requests sent",
			},
		),
		attentions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "afpfs_connection_attentions_total",
				Help: "Total unsolicited DSI_ATTENTION notifications received",
			},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "afpfs_connection_bytes_total",
				Help: "Total bytes transferred by direction, DSI headers included",
			},
			[]string{"direction"},
		),
		pendingRequests: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "afpfs_connection_pending_requests",
				Help: "Current number of outstanding unanswered requests",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "afpfs_connection_closed_total",
				Help: "Total connections closed by terminal reason",
			},
			[]string{"reason"},
		),
	}
}

func (m *connectionMetrics) RecordRequest(command string, duration time.Duration, resultCode int32) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(command, strconv.Itoa(int(resultCode))).Inc()
	m.requestDuration.WithLabelValues(command).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *connectionMetrics) RecordTickle() {
	if m == nil {
		return
	}
	m.tickles.Inc()
}

func (m *connectionMetrics) RecordAttention() {
	if m == nil {
		return
	}
	m.attentions.Inc()
}

func (m *connectionMetrics) RecordBytesTransferred(direction string, bytes uint64) {
	if m == nil {
		return
	}
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *connectionMetrics) SetPendingRequests(count int) {
	if m == nil {
		return
	}
	m.pendingRequests.Set(float64(count))
}

func (m *connectionMetrics) RecordConnectionClosed(reason string) {
	if m == nil {
		return
	}
	m.connectionsClosed.WithLabelValues(reason).Inc()
}

