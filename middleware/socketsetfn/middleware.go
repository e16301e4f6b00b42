package socketsetfn

import "github.com/RobertWHurst/websockify"

// Middleware creates WebSocket middleware that sets a value computed by
// valueFn on each socket as it opens. valueFn is called once per connection.
//
// Example:
//
//	app.Use(socketsetfn.Middleware("sessionID", uuid.NewString))
//
// See also: socketset.Middleware for constant values.
func Middleware[V any](key string, valueFn func() V) func(ctx *websockify.Context) {
	return func(ctx *websockify.Context) {
		ctx.SetOnSocket(key, valueFn())
		ctx.Next()
	}
}
