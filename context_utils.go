package websockify

import (
	"context"
	"net/http"
)

// CtxFromRequest returns the upgrade context carried by a request handed to
// the application handler. ok is false for plain HTTP requests.
func CtxFromRequest(req *http.Request) (*Context, bool) {
	return CtxFromContext(req.Context())
}

// CtxFromContext is like CtxFromRequest but takes the request's
// context.Context.
func CtxFromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok
}

// SocketFromRequest returns the live socket attached to an upgraded request.
// Handlers use it to tell WebSocket requests from plain HTTP ones: ok is
// false for the latter.
func SocketFromRequest(req *http.Request) (*Socket, bool) {
	return SocketFromContext(req.Context())
}

// SocketFromContext is like SocketFromRequest but takes the request's
// context.Context.
func SocketFromContext(ctx context.Context) (*Socket, bool) {
	c, ok := CtxFromContext(ctx)
	if !ok || c.socket == nil {
		return nil, false
	}
	return c.socket, true
}

// CtxResponseBody returns what the application handler wrote as the
// response body to the upgrade request, truncated.
func CtxResponseBody(ctx *Context) string {
	return ctx.responseWriter.body.String()
}
