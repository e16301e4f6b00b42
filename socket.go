package websockify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectionInfo describes the upgrade request a socket was created from.
type ConnectionInfo struct {
	RemoteAddr  string
	Headers     http.Header
	Path        string
	Subprotocol string
}

// Socket is a live WebSocket connection. It is attached to the request of
// every upgrade that runs through an App and can be retrieved by downstream
// handlers with SocketFromRequest.
//
// Messages can be consumed either by registering listeners with OnMessage,
// which the App feeds in arrival order once the middleware chain has returned,
// or by calling Receive directly from a handler. Mixing both on one socket
// splits the message stream between them.
type Socket struct {
	id         string
	info       *ConnectionInfo
	connection SocketConnection
	logger     *zap.Logger
	metrics    *Metrics

	listenersMu      sync.Mutex
	messageListeners []func(*Message)
	closeListeners   []func(Status, string)
	errorListeners   []func(error)

	valuesMu         sync.Mutex
	associatedValues map[string]any

	codecMu sync.RWMutex
	codec   *Codec

	readMu sync.Mutex

	// adopted is set once a handler registers a listener or moves a message
	// over the socket.
	adopted atomic.Bool

	closeMu     sync.Mutex
	closed      bool
	closeStatus Status
	closeReason string
	closeSource CloseSource
	doneChan    chan struct{}

	finishOnce sync.Once
}

// Adopted reports whether a handler has taken over the socket by registering
// a listener, sending or receiving.
func (s *Socket) Adopted() bool {
	return s.adopted.Load()
}

// NewSocket creates a socket over the given connection. The App creates
// sockets for upgraded requests itself; this is for frameworks and tests
// driving their own SocketConnection implementations.
func NewSocket(info *ConnectionInfo, connection SocketConnection) *Socket {
	return newSocket(info, connection, nil, nil)
}

func newSocket(info *ConnectionInfo, connection SocketConnection, logger *zap.Logger, metrics *Metrics) *Socket {
	if info == nil {
		info = &ConnectionInfo{}
	}
	if info.Headers == nil {
		info.Headers = http.Header{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.NewString()
	return &Socket{
		id:               id,
		info:             info,
		connection:       connection,
		logger:           logger.With(zap.String("socketID", id)),
		metrics:          metrics,
		associatedValues: map[string]any{},
		doneChan:         make(chan struct{}),
	}
}

// ID returns the unique identifier of the socket.
func (s *Socket) ID() string {
	return s.id
}

// RemoteAddr returns the remote address of the upgrade request.
func (s *Socket) RemoteAddr() string {
	return s.info.RemoteAddr
}

// Headers returns the headers of the upgrade request.
func (s *Socket) Headers() http.Header {
	return s.info.Headers
}

// Path returns the URL path of the upgrade request, without query string.
func (s *Socket) Path() string {
	return s.info.Path
}

// Subprotocol returns the sub-protocol negotiated during the handshake, or an
// empty string if none was.
func (s *Socket) Subprotocol() string {
	return s.info.Subprotocol
}

// Set stores a value on the socket. Values live as long as the connection and
// can be accessed from any goroutine.
func (s *Socket) Set(key string, value any) {
	s.valuesMu.Lock()
	defer s.valuesMu.Unlock()
	s.associatedValues[key] = value
}

// Get retrieves a value stored on the socket.
func (s *Socket) Get(key string) (any, bool) {
	s.valuesMu.Lock()
	defer s.valuesMu.Unlock()
	v, ok := s.associatedValues[key]
	return v, ok
}

// MustGet is like Get but panics if the key does not exist.
func (s *Socket) MustGet(key string) any {
	v, ok := s.Get(key)
	if !ok {
		panic("key not found on socket: " + key)
	}
	return v
}

// SetCodec sets the codec used by SendValue and Message.Decode.
func (s *Socket) SetCodec(codec *Codec) {
	s.codecMu.Lock()
	defer s.codecMu.Unlock()
	s.codec = codec
}

// Codec returns the codec configured on the socket, or nil.
func (s *Socket) Codec() *Codec {
	s.codecMu.RLock()
	defer s.codecMu.RUnlock()
	return s.codec
}

// Send writes a message of the given type to the socket.
func (s *Socket) Send(messageType MessageType, data []byte) error {
	return s.SendWithContext(context.Background(), messageType, data)
}

// SendText writes a text message to the socket.
func (s *Socket) SendText(text string) error {
	return s.Send(MessageText, []byte(text))
}

// SendBinary writes a binary message to the socket.
func (s *Socket) SendBinary(data []byte) error {
	return s.Send(MessageBinary, data)
}

// SendWithContext is like Send but the write is abandoned when ctx is done.
func (s *Socket) SendWithContext(ctx context.Context, messageType MessageType, data []byte) error {
	s.adopted.Store(true)
	if s.IsClosed() {
		return ErrSocketClosed
	}
	if err := s.connection.Write(ctx, &Message{Type: messageType, Data: data}); err != nil {
		return fmt.Errorf("error writing socket message: %w", err)
	}
	s.metrics.messageSent(messageType)
	return nil
}

// SendValue encodes v with the socket codec and sends it. Without a codec
// only raw payloads are accepted: a string is sent as text and a []byte as
// binary.
func (s *Socket) SendValue(v any) error {
	codec := s.Codec()
	if codec == nil {
		switch raw := v.(type) {
		case string:
			return s.SendText(raw)
		case []byte:
			return s.SendBinary(raw)
		}
		return ErrNoCodec
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding socket message: %w", err)
	}
	return s.Send(codec.MessageType, data)
}

// Receive blocks until the next message arrives. When the peer closes the
// connection the returned error is a *CloseError.
func (s *Socket) Receive(ctx context.Context) (*Message, error) {
	s.adopted.Store(true)
	if s.IsClosed() {
		return nil, ErrSocketClosed
	}

	s.readMu.Lock()
	msg, err := s.connection.Read(ctx)
	s.readMu.Unlock()

	if err != nil {
		s.handleReadError(err)
		return nil, err
	}

	msg.socket = s
	s.metrics.messageReceived(msg.Type)
	return msg, nil
}

// OnMessage registers a listener called with every message that arrives
// after the middleware chain has returned. Listeners run one message at a
// time, in arrival order.
func (s *Socket) OnMessage(listener func(msg *Message)) {
	s.adopted.Store(true)
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.messageListeners = append(s.messageListeners, listener)
}

// OnClose registers a listener called once the connection has closed, with
// the status and reason of the close.
func (s *Socket) OnClose(listener func(status Status, reason string)) {
	s.adopted.Store(true)
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.closeListeners = append(s.closeListeners, listener)
}

// OnError registers a listener called with connection level errors, such as
// the connection dropping without a close frame, and with panics recovered
// from message listeners.
func (s *Socket) OnError(listener func(err error)) {
	s.adopted.Store(true)
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.errorListeners = append(s.errorListeners, listener)
}

// Close closes the socket with a normal closure status.
func (s *Socket) Close() error {
	return s.CloseWithStatus(StatusNormalClosure, "")
}

// CloseWithStatus closes the socket with the given status and reason. Reasons
// longer than a close frame allows are truncated. Closing a closed socket is
// a no-op.
func (s *Socket) CloseWithStatus(status Status, reason string) error {
	reason = truncateCloseReason(reason)
	if !s.markClosed(status, reason, ServerCloseSource) {
		return nil
	}
	s.logger.Debug("closing websocket",
		zap.Int("status", int(status)),
		zap.String("reason", reason),
	)
	return s.connection.Close(status, reason)
}

// Done returns a channel that is closed once the socket is closed.
func (s *Socket) Done() <-chan struct{} {
	return s.doneChan
}

// IsClosed reports whether the socket has been closed by either side.
func (s *Socket) IsClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}

// CloseStatus returns the status and reason the socket was closed with, and
// which side closed it. It returns -1 as status while the socket is open.
func (s *Socket) CloseStatus() (Status, string, CloseSource) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if !s.closed {
		return -1, "", ClientCloseSource
	}
	return s.closeStatus, s.closeReason, s.closeSource
}

// markClosed records the close. Only the first call wins.
func (s *Socket) markClosed(status Status, reason string, source CloseSource) bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.closeStatus = status
	s.closeReason = reason
	s.closeSource = source
	close(s.doneChan)
	return true
}

func (s *Socket) handleReadError(err error) {
	var closeErr *CloseError
	if errors.As(err, &closeErr) {
		s.markClosed(closeErr.Status, closeErr.Reason, ClientCloseSource)
		return
	}
	if s.markClosed(StatusAbnormalClosure, "", ClientCloseSource) {
		s.logger.Debug("websocket connection lost", zap.Error(err))
		s.emitError(fmt.Errorf("error reading socket message: %w", err))
	}
}

// run feeds incoming messages to the message listeners until the connection
// closes, then runs the close listeners.
func (s *Socket) run(ctx context.Context) {
	for {
		msg, err := s.Receive(ctx)
		if err != nil {
			break
		}
		s.emitMessage(msg)
	}
	s.finish()
}

// finish releases the connection and runs the close listeners exactly once.
func (s *Socket) finish() {
	s.finishOnce.Do(func() {
		status, reason, source := s.CloseStatus()
		if source == ClientCloseSource {
			_ = s.connection.Close(StatusNormalClosure, "")
		}

		s.listenersMu.Lock()
		listeners := append([]func(Status, string){}, s.closeListeners...)
		s.listenersMu.Unlock()

		for _, listener := range listeners {
			s.execWithRecovery(func() {
				listener(status, reason)
			})
		}
	})
}

func (s *Socket) emitMessage(msg *Message) {
	s.listenersMu.Lock()
	listeners := append([]func(*Message){}, s.messageListeners...)
	s.listenersMu.Unlock()

	for _, listener := range listeners {
		s.execWithRecovery(func() {
			listener(msg)
		})
	}
}

func (s *Socket) emitError(err error) {
	s.listenersMu.Lock()
	listeners := append([]func(error){}, s.errorListeners...)
	s.listenersMu.Unlock()

	for _, listener := range listeners {
		s.execErrorListener(listener, err)
	}
}

// execErrorListener runs listener with its own recovery. A panic here is only
// logged, since reporting it to the error listeners could loop.
func (s *Socket) execErrorListener(listener func(error), err error) {
	defer func() {
		if maybeErr := recover(); maybeErr != nil {
			s.logger.Error("panic in socket error listener",
				zap.Any("panic", maybeErr),
				zap.NamedError("listenerError", err),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	listener(err)
}

func (s *Socket) execWithRecovery(fn func()) {
	defer func() {
		if maybeErr := recover(); maybeErr != nil {
			err, ok := maybeErr.(error)
			if !ok {
				err = fmt.Errorf("%v", maybeErr)
			}
			s.logger.Error("panic in socket listener",
				zap.Error(err),
				zap.ByteString("stack", debug.Stack()),
			)
			s.emitError(err)
		}
	}()
	fn()
}
