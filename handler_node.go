package websockify

// HandlerNode is a link in the WebSocket middleware chain of an App. Each
// node holds the handlers registered by one call to Use and the pattern
// scoping them.
type HandlerNode struct {
	Pattern  *Pattern
	Handlers []any
	Next     *HandlerNode
}

func (n *HandlerNode) tryMatch(ctx *Context) bool {
	if n.Pattern == nil {
		return true
	}
	return n.Pattern.MatchInto(ctx.Path(), &ctx.params)
}
