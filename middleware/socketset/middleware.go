package socketset

import "github.com/RobertWHurst/websockify"

// Middleware creates WebSocket middleware that sets a value on each socket as
// it opens. Socket values persist for the lifetime of the connection and are
// safe to read from message listeners.
//
// Example:
//
//	app.Use(socketset.Middleware("serverVersion", "1.0.0"))
//
//	socket.OnMessage(func(msg *websockify.Message) {
//	    version := socket.MustGet("serverVersion").(string)  // "1.0.0"
//	})
//
// See also: socketsetfn.Middleware for values computed per connection.
func Middleware[V any](key string, value V) func(ctx *websockify.Context) {
	return func(ctx *websockify.Context) {
		ctx.SetOnSocket(key, value)
		ctx.Next()
	}
}
