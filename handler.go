package websockify

// Handler is a handler object interface. Any object that implements this
// interface can be registered as WebSocket middleware with App.Use.
type Handler interface {
	Handle(ctx *Context)
}

// HandlerFunc is a function adapter that allows ordinary functions to be used
// as handlers.
type HandlerFunc func(ctx *Context)

// Handle calls f(ctx).
func (f HandlerFunc) Handle(ctx *Context) {
	f(ctx)
}
