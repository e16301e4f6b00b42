package websockify

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/net/http/httpguts"
)

// App wraps an application handler so that WebSocket upgrade requests run
// through the same handler as plain HTTP requests, with the live socket
// attached to the request. It implements http.Handler and can be served
// directly, or attached to an existing *http.Server with Attach.
type App struct {
	handler http.Handler
	options Options
	logger  *zap.Logger

	firstHandlerNode *HandlerNode
	lastHandlerNode  *HandlerNode

	socketsMu sync.Mutex
	sockets   map[string]*Socket
}

var _ http.Handler = &App{}

// Websockify wraps handler, typically the router of an HTTP framework, so
// that it also serves WebSocket upgrade requests. Handlers find the socket of
// an upgraded request with SocketFromRequest. Only the first Options value is
// used. A nil handler means http.DefaultServeMux.
func Websockify(handler http.Handler, options ...Options) *App {
	if handler == nil {
		handler = http.DefaultServeMux
	}

	a := &App{
		handler: handler,
		sockets: map[string]*Socket{},
	}
	if len(options) != 0 {
		a.options = options[0]
	}

	a.logger = a.options.Logger
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	return a
}

// Handler returns the wrapped application handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// ServeHTTP implements http.Handler. Upgrade requests are upgraded and run
// through the wrapped handler with their socket attached, everything else is
// passed to the wrapped handler untouched.
func (a *App) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if IsUpgradeRequest(req) {
		a.handleUpgrade(res, req)
		return
	}
	a.handler.ServeHTTP(res, req)
}

// Attach makes the server divert its WebSocket upgrade requests to the App.
// Other requests keep going to the server's handler, so the App can be
// attached to a server built around a different handler, for example one
// carrying TLS or extra HTTP only routes. Sockets still open when the server
// shuts down are closed with StatusGoingAway.
func (a *App) Attach(server *http.Server) {
	handler := server.Handler
	if handler == nil {
		handler = http.DefaultServeMux
	}

	if existing, ok := handler.(*App); !ok || existing != a {
		server.Handler = http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
			if IsUpgradeRequest(req) {
				a.handleUpgrade(res, req)
				return
			}
			handler.ServeHTTP(res, req)
		})
	}

	server.RegisterOnShutdown(func() {
		a.CloseAll(StatusGoingAway, "server shutting down")
	})
}

// NewServer returns a server listening on addr with the App as its handler,
// already attached.
func (a *App) NewServer(addr string) *http.Server {
	server := &http.Server{
		Addr:    addr,
		Handler: a,
	}
	a.Attach(server)
	return server
}

// ListenAndServe listens on addr and serves both HTTP and WebSocket requests.
func (a *App) ListenAndServe(addr string) error {
	return a.NewServer(addr).ListenAndServe()
}

// ListenAndServeTLS is like ListenAndServe but serves HTTPS and WSS.
func (a *App) ListenAndServeTLS(addr, certFile, keyFile string) error {
	return a.NewServer(addr).ListenAndServeTLS(certFile, keyFile)
}

// Use registers WebSocket middleware. It runs for upgrade requests only,
// before the wrapped application handler, which runs once the middleware
// chain has been walked with Next. Middleware that does not call Next keeps
// the application handler from seeing the upgrade.
//
// Middleware can be scoped to a path by passing a path as the first
// argument. Paths are mounted with a trailing '/**':
//
//	app.Use("/admin", authMiddleware)
//
// Handlers must be of type Handler, HandlerFunc, or func(*Context).
func (a *App) Use(handlers ...any) {
	mountPath := "/**"
	if len(handlers) != 0 {
		if customMountPath, ok := handlers[0].(string); ok {
			if !strings.HasSuffix(customMountPath, "/**") {
				customMountPath = strings.TrimSuffix(customMountPath, "/")
				customMountPath += "/**"
			}
			mountPath = customMountPath
			handlers = handlers[1:]
		}
	}

	if len(handlers) == 0 {
		panic("no handlers provided")
	}

	for _, handler := range handlers {
		if _, ok := handler.(Handler); ok {
			continue
		} else if _, ok := handler.(func(*Context)); ok {
			continue
		}

		panic("invalid handler type. Must be Handler, HandlerFunc, or " +
			"func(*Context). Got: " + reflect.TypeOf(handler).String())
	}

	pattern, err := NewPattern(mountPath)
	if err != nil {
		panic("invalid mount path \"" + mountPath + "\": " + err.Error())
	}

	nextHandlerNode := &HandlerNode{
		Pattern:  pattern,
		Handlers: handlers,
	}

	if a.firstHandlerNode == nil {
		a.firstHandlerNode = nextHandlerNode
		a.lastHandlerNode = nextHandlerNode
	} else {
		a.lastHandlerNode.Next = nextHandlerNode
		a.lastHandlerNode = nextHandlerNode
	}
}

// HandleConnection drives an already established connection through the
// WebSocket middleware and the application handler as if it had been
// upgraded from req. It is for frameworks that perform the handshake with
// their own WebSocket implementation; it blocks until the connection closes.
func (a *App) HandleConnection(req *http.Request, connection SocketConnection) {
	info := &ConnectionInfo{
		RemoteAddr: req.RemoteAddr,
		Headers:    req.Header,
		Path:       req.URL.Path,
	}
	if withSubprotocol, ok := connection.(interface{ Subprotocol() string }); ok {
		info.Subprotocol = withSubprotocol.Subprotocol()
	}
	a.handleSocket(newSocket(info, connection, a.logger, a.options.Metrics), req)
}

// Sockets returns the sockets currently open on the App.
func (a *App) Sockets() []*Socket {
	a.socketsMu.Lock()
	defer a.socketsMu.Unlock()
	sockets := make([]*Socket, 0, len(a.sockets))
	for _, socket := range a.sockets {
		sockets = append(sockets, socket)
	}
	return sockets
}

// CloseAll closes every socket open on the App with the given status and
// reason.
func (a *App) CloseAll(status Status, reason string) {
	for _, socket := range a.Sockets() {
		if err := socket.CloseWithStatus(status, reason); err != nil {
			a.logger.Debug("error closing websocket",
				zap.String("socketID", socket.ID()),
				zap.Error(err),
			)
		}
	}
}

// IsUpgradeRequest reports whether req asks to switch protocols to
// WebSocket.
func IsUpgradeRequest(req *http.Request) bool {
	return httpguts.HeaderValuesContainsToken(req.Header["Connection"], "upgrade") &&
		httpguts.HeaderValuesContainsToken(req.Header["Upgrade"], "websocket")
}

func (a *App) handleUpgrade(res http.ResponseWriter, req *http.Request) {
	logger := a.logger.With(
		zap.String("path", req.URL.Path),
		zap.String("remoteAddr", req.RemoteAddr),
	)
	logger.Debug("websocket connection received")

	acceptOptions := a.options.acceptOptions()

	if offered := requestedSubprotocols(req); len(offered) != 0 && a.options.HandleProtocols != nil {
		protocol, ok := a.options.HandleProtocols(offered, req)
		if !ok {
			logger.Warn("websocket sub-protocol rejected", zap.Strings("protocols", offered))
			a.options.Metrics.handshakeFailed("protocol")
			http.Error(res, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		acceptOptions.Subprotocols = nil
		if protocol != "" {
			acceptOptions.Subprotocols = []string{protocol}
		}
	}

	conn, err := websocket.Accept(res, req, acceptOptions)
	if err != nil {
		logger.Warn("websocket handshake failed", zap.Error(err))
		a.options.Metrics.handshakeFailed("accept")
		return
	}
	if a.options.ReadLimit > 0 {
		conn.SetReadLimit(a.options.ReadLimit)
	}

	info := &ConnectionInfo{
		RemoteAddr:  req.RemoteAddr,
		Headers:     req.Header,
		Path:        req.URL.Path,
		Subprotocol: conn.Subprotocol(),
	}
	socket := newSocket(info, NewWebSocketConnection(conn), a.logger, a.options.Metrics)

	a.handleSocket(socket, req)
}

func (a *App) handleSocket(socket *Socket, req *http.Request) {
	a.addSocket(socket)
	defer a.removeSocket(socket.ID())

	a.options.Metrics.connectionOpened()
	defer a.options.Metrics.connectionClosed()

	ctx := NewContextWithNode(socket, req, a.firstHandlerNode, a.handler)
	ctx.Next()

	if ctx.Error != nil {
		socket.logger.Error("error handling websocket upgrade",
			zap.String("path", ctx.Path()),
			zap.Error(ctx.Error),
			zap.String("stack", ctx.ErrorStack),
		)
		_ = socket.CloseWithStatus(StatusInternalError, "internal error")
	} else if a.options.CloseOnErrorStatus && !socket.Adopted() && ctx.Status() >= http.StatusBadRequest {
		reason := strings.TrimSpace(CtxResponseBody(ctx))
		if reason == "" {
			reason = http.StatusText(ctx.Status())
		}
		_ = socket.CloseWithStatus(StatusPolicyViolation, reason)
	}

	socket.run(req.Context())

	status, reason, source := socket.CloseStatus()
	socket.logger.Debug("websocket connection closed",
		zap.Int("status", int(status)),
		zap.String("reason", reason),
		zap.Stringer("source", source),
	)
}

func (a *App) addSocket(socket *Socket) {
	a.socketsMu.Lock()
	defer a.socketsMu.Unlock()
	a.sockets[socket.ID()] = socket
}

func (a *App) removeSocket(socketID string) {
	a.socketsMu.Lock()
	defer a.socketsMu.Unlock()
	delete(a.sockets, socketID)
}

func requestedSubprotocols(req *http.Request) []string {
	var protocols []string
	for _, value := range req.Header.Values("Sec-WebSocket-Protocol") {
		for _, protocol := range strings.Split(value, ",") {
			if protocol = strings.TrimSpace(protocol); protocol != "" {
				protocols = append(protocols, protocol)
			}
		}
	}
	return protocols
}
