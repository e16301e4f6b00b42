package websockify_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RobertWHurst/websockify"
	"github.com/RobertWHurst/websockify/websockifytest"
)

// serveConnection drives connection through app on a goroutine, returning a
// channel closed once the App is done with it.
func serveConnection(app *websockify.App, path string, connection websockify.SocketConnection) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.HandleConnection(httptest.NewRequest(http.MethodGet, path, nil), connection)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for connection to finish")
	}
}

func TestSocketDispatchesMessagesInOrder(t *testing.T) {
	app := websockify.Websockify(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		socket, _ := websockify.SocketFromRequest(req)
		socket.OnMessage(func(msg *websockify.Message) {
			_ = msg.Reply([]byte("echo:" + msg.Text()))
		})
	}))

	connection := websockifytest.NewConnection()
	done := serveConnection(app, "/echo", connection)

	for _, text := range []string{"one", "two", "three"} {
		connection.DeliverText(text)
	}
	for _, text := range []string{"one", "two", "three"} {
		msg, ok := connection.Sent(time.Second)
		if !ok {
			t.Fatalf("expected reply to %q", text)
		}
		if msg.Text() != "echo:"+text {
			t.Errorf("expected %q, got %q", "echo:"+text, msg.Text())
		}
		if msg.Type != websockify.MessageText {
			t.Errorf("expected text message, got %v", msg.Type)
		}
	}

	connection.PeerClose(websockify.StatusNormalClosure, "")
	waitDone(t, done)
}

func TestSocketReplyKeepsMessageType(t *testing.T) {
	app := websockify.Websockify(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		socket, _ := websockify.SocketFromRequest(req)
		socket.OnMessage(func(msg *websockify.Message) {
			_ = msg.Reply(msg.Data)
		})
	}))

	connection := websockifytest.NewConnection()
	done := serveConnection(app, "/", connection)

	connection.Deliver(websockify.MessageBinary, []byte{0x01, 0x02})
	msg, ok := connection.Sent(time.Second)
	if !ok {
		t.Fatal("expected reply")
	}
	if msg.Type != websockify.MessageBinary {
		t.Errorf("expected binary message, got %v", msg.Type)
	}
	if !bytes.Equal(msg.Data, []byte{0x01, 0x02}) {
		t.Errorf("unexpected data %v", msg.Data)
	}

	connection.PeerClose(websockify.StatusNormalClosure, "")
	waitDone(t, done)
}

func TestSocketCloseListenersReceivePeerStatus(t *testing.T) {
	type closeEvent struct {
		status websockify.Status
		reason string
	}
	events := make(chan closeEvent, 2)

	var socket *websockify.Socket
	app := websockify.Websockify(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		socket, _ = websockify.SocketFromRequest(req)
		socket.OnClose(func(status websockify.Status, reason string) {
			events <- closeEvent{status, reason}
		})
	}))

	connection := websockifytest.NewConnection()
	done := serveConnection(app, "/", connection)

	connection.PeerClose(websockify.StatusGoingAway, "leaving")
	waitDone(t, done)

	if len(events) != 1 {
		t.Fatalf("expected 1 close event, got %d", len(events))
	}
	event := <-events
	if event.status != websockify.StatusGoingAway || event.reason != "leaving" {
		t.Errorf("unexpected close event %+v", event)
	}

	status, reason, source := socket.CloseStatus()
	if status != websockify.StatusGoingAway || reason != "leaving" {
		t.Errorf("unexpected close status %v %q", status, reason)
	}
	if source != websockify.ClientCloseSource {
		t.Errorf("expected client close source, got %v", source)
	}
	if !socket.IsClosed() {
		t.Error("expected socket to be closed")
	}
}

func TestSocketDroppedConnectionEmitsError(t *testing.T) {
	errs := make(chan error, 1)
	closes := make(chan websockify.Status, 1)

	app := websockify.Websockify(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		socket, _ := websockify.SocketFromRequest(req)
		socket.OnError(func(err error) { errs <- err })
		socket.OnClose(func(status websockify.Status, reason string) { closes <- status })
	}))

	connection := websockifytest.NewConnection()
	done := serveConnection(app, "/", connection)

	connection.PeerDrop()
	waitDone(t, done)

	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if status := <-closes; status != websockify.StatusAbnormalClosure {
		t.Errorf("expected abnormal closure, got %v", status)
	}
}

func TestSocketListenerPanicDoesNotStopDispatch(t *testing.T) {
	errs := make(chan error, 1)

	app := websockify.Websockify(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		socket, _ := websockify.SocketFromRequest(req)
		socket.OnError(func(err error) { errs <- err })
		socket.OnMessage(func(msg *websockify.Message) {
			if msg.Text() == "panic" {
				panic("listener failed")
			}
			_ = msg.Reply(msg.Data)
		})
	}))

	connection := websockifytest.NewConnection()
	done := serveConnection(app, "/", connection)

	connection.DeliverText("panic")
	connection.DeliverText("still here")

	msg, ok := connection.Sent(time.Second)
	if !ok {
		t.Fatal("expected reply")
	}
	if msg.Text() != "still here" {
		t.Errorf("expected 'still here', got %q", msg.Text())
	}

	select {
	case err := <-errs:
		if !strings.Contains(err.Error(), "listener failed") {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected panic to be reported as an error")
	}

	connection.PeerClose(websockify.StatusNormalClosure, "")
	waitDone(t, done)
}

func TestSocketErrorListenerPanicDoesNotStopDispatch(t *testing.T) {
	reached := make(chan error, 2)

	app := websockify.Websockify(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		socket, _ := websockify.SocketFromRequest(req)
		socket.OnError(func(err error) {
			panic("error listener failed")
		})
		socket.OnError(func(err error) { reached <- err })
		socket.OnMessage(func(msg *websockify.Message) {
			if msg.Text() == "panic" {
				panic("listener failed")
			}
			_ = msg.Reply(msg.Data)
		})
	}))

	connection := websockifytest.NewConnection()
	done := serveConnection(app, "/", connection)

	connection.DeliverText("panic")
	connection.DeliverText("still here")

	msg, ok := connection.Sent(time.Second)
	if !ok {
		t.Fatal("expected reply after error listener panicked")
	}
	if msg.Text() != "still here" {
		t.Errorf("expected 'still here', got %q", msg.Text())
	}

	select {
	case err := <-reached:
		if !strings.Contains(err.Error(), "listener failed") {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected later error listeners to still run")
	}

	connection.PeerClose(websockify.StatusNormalClosure, "")
	waitDone(t, done)
}

func TestSocketServerClose(t *testing.T) {
	socket, connection := websockifytest.NewSocket()

	if err := socket.CloseWithStatus(websockify.StatusPolicyViolation, "nope"); err != nil {
		t.Fatal(err)
	}
	if err := socket.Close(); err != nil {
		t.Errorf("closing twice should be a no-op, got %v", err)
	}

	status, reason := connection.CloseStatus()
	if status != websockify.StatusPolicyViolation || reason != "nope" {
		t.Errorf("unexpected connection close %v %q", status, reason)
	}

	socketStatus, _, source := socket.CloseStatus()
	if socketStatus != websockify.StatusPolicyViolation {
		t.Errorf("expected policy violation, got %v", socketStatus)
	}
	if source != websockify.ServerCloseSource {
		t.Errorf("expected server close source, got %v", source)
	}

	select {
	case <-socket.Done():
	default:
		t.Error("expected Done to be closed")
	}

	if err := socket.SendText("late"); !errors.Is(err, websockify.ErrSocketClosed) {
		t.Errorf("expected ErrSocketClosed, got %v", err)
	}
	if _, err := socket.Receive(context.Background()); !errors.Is(err, websockify.ErrSocketClosed) {
		t.Errorf("expected ErrSocketClosed, got %v", err)
	}
}

func TestSocketReceive(t *testing.T) {
	socket, connection := websockifytest.NewSocket()

	connection.DeliverText("hello")
	msg, err := socket.Receive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if msg.Text() != "hello" {
		t.Errorf("expected 'hello', got %q", msg.Text())
	}
	if msg.Socket() != socket {
		t.Error("expected message to reference its socket")
	}

	connection.PeerClose(websockify.StatusNormalClosure, "done")
	_, err = socket.Receive(context.Background())

	var closeErr *websockify.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected close error, got %v", err)
	}
	if closeErr.Status != websockify.StatusNormalClosure || closeErr.Reason != "done" {
		t.Errorf("unexpected close error %v", closeErr)
	}
	if !socket.IsClosed() {
		t.Error("expected socket to be closed")
	}
}

func TestSocketReceiveHonoursContext(t *testing.T) {
	socket, _ := websockifytest.NewSocket()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := socket.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSocketAdopted(t *testing.T) {
	tests := []struct {
		name  string
		adopt func(socket *websockify.Socket)
	}{
		{name: "message listener", adopt: func(socket *websockify.Socket) { socket.OnMessage(func(*websockify.Message) {}) }},
		{name: "close listener", adopt: func(socket *websockify.Socket) { socket.OnClose(func(websockify.Status, string) {}) }},
		{name: "error listener", adopt: func(socket *websockify.Socket) { socket.OnError(func(error) {}) }},
		{name: "send", adopt: func(socket *websockify.Socket) { _ = socket.SendText("hi") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			socket, _ := websockifytest.NewSocket()
			if socket.Adopted() {
				t.Fatal("expected a fresh socket not to be adopted")
			}
			tt.adopt(socket)
			if !socket.Adopted() {
				t.Error("expected socket to be adopted")
			}
		})
	}
}

func TestSocketValues(t *testing.T) {
	socket, _ := websockifytest.NewSocket()

	if _, ok := socket.Get("user"); ok {
		t.Error("expected missing value")
	}

	socket.Set("user", "ada")
	if value, ok := socket.Get("user"); !ok || value != "ada" {
		t.Errorf("expected 'ada', got %v", value)
	}
	if socket.MustGet("user") != "ada" {
		t.Error("expected MustGet to return 'ada'")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected MustGet to panic for a missing key")
			}
		}()
		socket.MustGet("missing")
	}()

	if socket.ID() == "" {
		t.Error("expected socket ID")
	}
	if socket.Path() != "/" {
		t.Errorf("expected path '/', got %q", socket.Path())
	}
	if status, _, _ := socket.CloseStatus(); status != websockify.Status(-1) {
		t.Errorf("expected no close status on an open socket, got %v", status)
	}
}

func TestSocketSendValueRequiresCodec(t *testing.T) {
	socket, connection := websockifytest.NewSocket()

	if err := socket.SendValue(map[string]string{"a": "b"}); !errors.Is(err, websockify.ErrNoCodec) {
		t.Errorf("expected ErrNoCodec, got %v", err)
	}

	if err := socket.SendValue("raw"); err != nil {
		t.Fatal(err)
	}
	raw, ok := connection.Sent(time.Second)
	if !ok {
		t.Fatal("expected raw message")
	}
	if raw.Type != websockify.MessageText || raw.Text() != "raw" {
		t.Errorf("unexpected raw message %v %q", raw.Type, raw.Text())
	}

	connection.Deliver(websockify.MessageBinary, []byte{7})
	rawIncoming, err := socket.Receive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var rawData []byte
	if err := rawIncoming.Decode(&rawData); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rawData, []byte{7}) {
		t.Errorf("unexpected raw data %v", rawData)
	}

	socket.SetCodec(&websockify.Codec{
		Name:        "upper",
		MessageType: websockify.MessageText,
		Marshal: func(v any) ([]byte, error) {
			return []byte("encoded"), nil
		},
		Unmarshal: func(data []byte, into any) error {
			*(into.(*string)) = string(data)
			return nil
		},
	})

	if err := socket.SendValue("anything"); err != nil {
		t.Fatal(err)
	}
	msg, ok := connection.Sent(time.Second)
	if !ok {
		t.Fatal("expected encoded message")
	}
	if msg.Text() != "encoded" {
		t.Errorf("expected 'encoded', got %q", msg.Text())
	}

	connection.DeliverText("decoded")
	incoming, err := socket.Receive(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var into string
	if err := incoming.Decode(&into); err != nil {
		t.Fatal(err)
	}
	if into != "decoded" {
		t.Errorf("expected 'decoded', got %q", into)
	}
}

func TestMessageReplyWithoutSocket(t *testing.T) {
	msg := &websockify.Message{Type: websockify.MessageText, Data: []byte("x")}
	if err := msg.Reply([]byte("y")); !errors.Is(err, websockify.ErrNoSocket) {
		t.Errorf("expected ErrNoSocket, got %v", err)
	}
}

func TestCloseErrorMessage(t *testing.T) {
	err := &websockify.CloseError{Status: websockify.StatusNormalClosure, Reason: "bye"}
	if !strings.Contains(err.Error(), "1000") || !strings.Contains(err.Error(), "bye") {
		t.Errorf("unexpected error message %q", err.Error())
	}
	if websockify.ServerCloseSource.String() != "server" {
		t.Errorf("unexpected server source %q", websockify.ServerCloseSource.String())
	}
	if websockify.ClientCloseSource.String() != "client" {
		t.Errorf("unexpected client source %q", websockify.ClientCloseSource.String())
	}
}
