package websockify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RobertWHurst/websockify"
	"github.com/RobertWHurst/websockify/websockifytest"
	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsTrackConnectionsAndMessages(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := websockify.NewMetrics(registry)
	if err != nil {
		t.Fatal(err)
	}

	opened := make(chan struct{})
	app := websockify.Websockify(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		socket, _ := websockify.SocketFromRequest(req)
		socket.OnMessage(func(msg *websockify.Message) {
			_ = msg.Reply(msg.Data)
		})
		close(opened)
	}), websockify.Options{Metrics: metrics})

	connection := websockifytest.NewConnection()
	done := serveConnection(app, "/", connection)

	<-opened
	if active := testutil.ToFloat64(metrics.ConnectionsActive); active != 1 {
		t.Errorf("expected 1 active connection, got %v", active)
	}

	connection.DeliverText("a")
	connection.Deliver(websockify.MessageBinary, []byte{1})
	for range 2 {
		if _, ok := connection.Sent(time.Second); !ok {
			t.Fatal("expected reply")
		}
	}

	connection.PeerClose(websockify.StatusNormalClosure, "")
	waitDone(t, done)

	expected := []struct {
		name      string
		collector prometheus.Collector
		value     float64
	}{
		{"active connections", metrics.ConnectionsActive, 0},
		{"total connections", metrics.ConnectionsTotal, 1},
		{"text received", metrics.MessagesReceived.WithLabelValues("text"), 1},
		{"binary received", metrics.MessagesReceived.WithLabelValues("binary"), 1},
		{"text sent", metrics.MessagesSent.WithLabelValues("text"), 1},
		{"binary sent", metrics.MessagesSent.WithLabelValues("binary"), 1},
	}
	for _, e := range expected {
		if value := testutil.ToFloat64(e.collector); value != e.value {
			t.Errorf("expected %s to be %v, got %v", e.name, e.value, value)
		}
	}
}

func TestMetricsCountRejectedHandshakes(t *testing.T) {
	metrics, err := websockify.NewMetrics(nil)
	if err != nil {
		t.Fatal(err)
	}

	app := websockify.Websockify(http.NotFoundHandler(), websockify.Options{
		Metrics: metrics,
		HandleProtocols: func(protocols []string, req *http.Request) (string, bool) {
			return "", false
		},
	})
	server := httptest.NewServer(app)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err = websocket.Dial(ctx, server.URL, &websocket.DialOptions{
		Subprotocols: []string{"anything"},
	})
	if err == nil {
		t.Fatal("expected handshake to fail")
	}

	if failures := testutil.ToFloat64(metrics.HandshakeFailures.WithLabelValues("protocol")); failures != 1 {
		t.Errorf("expected 1 protocol failure, got %v", failures)
	}
	if total := testutil.ToFloat64(metrics.ConnectionsTotal); total != 0 {
		t.Errorf("expected no connections, got %v", total)
	}
}

func TestMetricsRegistrationConflict(t *testing.T) {
	registry := prometheus.NewRegistry()

	if _, err := websockify.NewMetrics(registry); err != nil {
		t.Fatal(err)
	}
	if _, err := websockify.NewMetrics(registry); err == nil {
		t.Error("expected registering twice to fail")
	}
}
