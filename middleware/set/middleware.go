package set

import "github.com/RobertWHurst/websockify"

// Middleware creates WebSocket middleware that sets a value on the upgrade
// context. The value is shared by every connection.
//
// Example:
//
//	app.Use(set.Middleware("apiVersion", "v1"))
//
//	router.Get("/info", func(ctx *navaros.Context) {
//	    wsCtx, _ := websockify.CtxFromRequest(ctx.Request())
//	    version := wsCtx.MustGet("apiVersion").(string)  // "v1"
//	})
//
// See also: setfn.Middleware for values computed per connection.
func Middleware[V any](key string, value V) func(ctx *websockify.Context) {
	return func(ctx *websockify.Context) {
		ctx.Set(key, value)
		ctx.Next()
	}
}
