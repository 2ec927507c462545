package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/afpfs/pkg/metrics"
)

type sessionMetrics struct {
	loginAttempts      *prometheus.CounterVec
	negotiatedVersions *prometheus.CounterVec
}

// NewSessionMetrics returns a Prometheus-backed SessionMetrics, or nil if
// metrics.InitRegistry has not been called.
func NewSessionMetrics() metrics.SessionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &sessionMetrics{
		loginAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "afpfs_session_login_attempts_total",
				Help: "Total login attempts by UAM and outcome",
			},
			[]string{"uam", "outcome"},
		),
		negotiatedVersions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "afpfs_session_negotiated_versions_total",
				Help: "Total sessions established by negotiated AFP version",
			},
			[]string{"version"},
		),
	}
}

func (m *sessionMetrics) RecordLoginAttempt(uam string, outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(uam, outcome).Inc()
}

func (m *sessionMetrics) RecordNegotiatedVersion(version string) {
	if m == nil {
		return
	}
	m.negotiatedVersions.WithLabelValues(version).Inc()
}
