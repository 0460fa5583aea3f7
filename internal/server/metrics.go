package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the relay's Prometheus metrics.
type Metrics struct {
	Connections    prometheus.Gauge
	Sessions       prometheus.Gauge
	FramesReceived *prometheus.CounterVec
	FramesRejected *prometheus.CounterVec
	FramesSent     *prometheus.CounterVec
	SendFailures   *prometheus.CounterVec
}

// NewMetrics creates and registers the relay metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gochat_connections",
			Help: "Number of open WebSocket connections, joined or not",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gochat_sessions",
			Help: "Number of joined sessions",
		}),
		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochat_frames_received_total",
				Help: "Total number of decoded client frames by kind",
			},
			[]string{"kind"},
		),
		FramesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochat_frames_rejected_total",
				Help: "Total number of client frames dropped by reason",
			},
			[]string{"reason"},
		),
		FramesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochat_frames_sent_total",
				Help: "Total number of frames queued to recipients by kind",
			},
			[]string{"kind"},
		),
		SendFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochat_send_failures_total",
				Help: "Total number of per-recipient send failures by reason",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(
		m.Connections,
		m.Sessions,
		m.FramesReceived,
		m.FramesRejected,
		m.FramesSent,
		m.SendFailures,
	)

	return m
}

// Rejection reasons that do not come from the codec.
const (
	rejectRateLimited = "rate_limited"
	rejectBinary      = "binary_frame"
	rejectOutOfState  = "out_of_state"
	rejectCommand     = "command_rejected"
)
