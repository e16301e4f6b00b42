package setfn

import "github.com/RobertWHurst/websockify"

// Middleware creates WebSocket middleware that sets a value computed by
// valueFn on the upgrade context. valueFn is called once per connection.
//
// Example:
//
//	app.Use(setfn.Middleware("connectedAt", time.Now))
//
// See also: set.Middleware for constant values.
func Middleware[V any](key string, valueFn func() V) func(ctx *websockify.Context) {
	return func(ctx *websockify.Context) {
		ctx.Set(key, valueFn())
		ctx.Next()
	}
}
