package websockify

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors an App reports to. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	HandshakeFailures *prometheus.CounterVec
	MessagesReceived  *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "websockify",
			Name:      "connections_active",
			Help:      "Current number of open WebSocket connections",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "websockify",
			Name:      "connections_total",
			Help:      "Total number of accepted WebSocket connections",
		}),
		HandshakeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "websockify",
			Name:      "handshake_failures_total",
			Help:      "Total number of rejected or failed WebSocket handshakes",
		}, []string{"reason"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "websockify",
			Name:      "messages_received_total",
			Help:      "Total number of WebSocket messages received",
		}, []string{"type"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "websockify",
			Name:      "messages_sent_total",
			Help:      "Total number of WebSocket messages sent",
		}, []string{"type"}),
	}

	if reg != nil {
		for _, collector := range []prometheus.Collector{
			m.ConnectionsActive,
			m.ConnectionsTotal,
			m.HandshakeFailures,
			m.MessagesReceived,
			m.MessagesSent,
		} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Inc()
	m.ConnectionsTotal.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
}

func (m *Metrics) handshakeFailed(reason string) {
	if m == nil {
		return
	}
	m.HandshakeFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) messageReceived(messageType MessageType) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(messageTypeLabel(messageType)).Inc()
}

func (m *Metrics) messageSent(messageType MessageType) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(messageTypeLabel(messageType)).Inc()
}

func messageTypeLabel(messageType MessageType) string {
	if messageType == MessageBinary {
		return "binary"
	}
	return "text"
}
