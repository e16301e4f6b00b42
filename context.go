package websockify

import (
	"context"
	"net/http"
	"sync"
)

// Context is synthesized for each upgraded request. It carries the live
// socket and the upgrade request through the WebSocket middleware registered
// with App.Use, and then through the wrapped application handler. It lives as
// long as the connection.
type Context struct {
	socket         *Socket
	request        *http.Request
	responseWriter *upgradeResponseWriter
	path           string
	params         Params

	// Error is set when a handler panics. Once set, Next no longer runs
	// handlers and the App closes the socket with StatusInternalError.
	Error      error
	ErrorStack string

	currentHandlerNode        *HandlerNode
	currentHandlerNodeMatches bool
	currentHandlerIndex       int
	currentHandler            any
	chainEnded                bool

	finalHandler       http.Handler
	finalHandlerCalled bool

	valuesMu         sync.Mutex
	associatedValues map[string]any
}

type contextKey struct{}

// NewContext creates a context running the given handlers in order. It is
// meant for frameworks and tests; the App creates its own contexts.
func NewContext(socket *Socket, req *http.Request, handlers ...any) *Context {
	return NewContextWithNode(socket, req, &HandlerNode{Handlers: handlers}, nil)
}

// NewContextWithNode creates a context starting at the given handler node.
// Once the chain is exhausted, finalHandler, if not nil, is served the
// upgrade request. The request handed to handlers carries the context, so
// SocketFromRequest works on it.
func NewContextWithNode(socket *Socket, req *http.Request, firstHandlerNode *HandlerNode, finalHandler http.Handler) *Context {
	ctx := &Context{
		socket:             socket,
		responseWriter:     newUpgradeResponseWriter(),
		path:               req.URL.Path,
		params:             Params{},
		currentHandlerNode: firstHandlerNode,
		finalHandler:       finalHandler,
		associatedValues:   map[string]any{},
	}
	ctx.request = req.WithContext(context.WithValue(req.Context(), contextKey{}, ctx))
	return ctx
}

// Socket returns the live socket of the upgraded connection.
func (c *Context) Socket() *Socket {
	return c.socket
}

// Request returns the upgrade request. Its context carries this Context.
func (c *Context) Request() *http.Request {
	return c.request
}

// ResponseWriter returns the writer handed to the application handler. The
// connection has been hijacked by the handshake, so nothing written to it
// reaches the client; the status and body are only recorded.
func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.responseWriter
}

// Status returns the HTTP status the application handler responded to the
// upgrade request with, or 0 if it did not respond.
func (c *Context) Status() int {
	return c.responseWriter.status
}

// Path returns the upgrade request URL path. The query string is not part of
// it.
func (c *Context) Path() string {
	return c.path
}

// Params returns the parameters captured by the mount pattern of the
// currently executing middleware.
func (c *Context) Params() Params {
	return c.params
}

// Headers returns the headers of the upgrade request.
func (c *Context) Headers() http.Header {
	return c.request.Header
}

// Set stores a value on the context.
func (c *Context) Set(key string, value any) {
	c.valuesMu.Lock()
	defer c.valuesMu.Unlock()
	c.associatedValues[key] = value
}

// Get retrieves a value stored on the context.
func (c *Context) Get(key string) (any, bool) {
	c.valuesMu.Lock()
	defer c.valuesMu.Unlock()
	v, ok := c.associatedValues[key]
	return v, ok
}

// MustGet is like Get but panics if the key does not exist.
func (c *Context) MustGet(key string) any {
	v, ok := c.Get(key)
	if !ok {
		panic("key not found on context: " + key)
	}
	return v
}

// SetOnSocket stores a value on the socket, see Socket.Set.
func (c *Context) SetOnSocket(key string, value any) {
	c.socket.Set(key, value)
}

// GetFromSocket retrieves a value stored on the socket, see Socket.Get.
func (c *Context) GetFromSocket(key string) (any, bool) {
	return c.socket.Get(key)
}
