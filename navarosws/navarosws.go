// Package navarosws connects websockify to navaros routers.
//
// Wrap the navaros router with websockify.Websockify and use CtxSocket in
// route handlers to get the socket of an upgraded request:
//
//	router := navaros.NewRouter()
//	router.Get("/chat", navarosws.Require(), func(ctx *navaros.Context) {
//	    socket, _ := navarosws.CtxSocket(ctx)
//	    socket.OnMessage(func(msg *websockify.Message) {
//	        _ = msg.Reply(msg.Data)
//	    })
//	})
//	websockify.Websockify(router).ListenAndServe(":8080")
package navarosws

import (
	"net/http"

	"github.com/RobertWHurst/navaros"
	"github.com/RobertWHurst/websockify"
)

// CtxSocket returns the socket attached to the request of a navaros context.
// ok is false for plain HTTP requests.
func CtxSocket(ctx *navaros.Context) (*websockify.Socket, bool) {
	return websockify.SocketFromRequest(ctx.Request())
}

// Require returns middleware that only lets WebSocket requests through.
// Plain HTTP requests are answered with 400 Bad Request. WebSocket requests
// are recorded as 101 Switching Protocols so that a route which only
// registers listeners is not answered with navaros' 404 fallback.
func Require() navaros.HandlerFunc {
	return func(ctx *navaros.Context) {
		if _, ok := CtxSocket(ctx); !ok {
			ctx.Status = http.StatusBadRequest
			ctx.Body = "ERROR: " + ctx.Request().URL.String() + " only handles WebSocket requests"
			return
		}
		ctx.Status = http.StatusSwitchingProtocols
		ctx.Next()
	}
}

// Reject returns middleware that only lets plain HTTP requests through. The
// socket of a WebSocket request is closed with a policy violation status.
func Reject() navaros.HandlerFunc {
	return func(ctx *navaros.Context) {
		if socket, ok := CtxSocket(ctx); ok {
			_ = socket.CloseWithStatus(
				websockify.StatusPolicyViolation,
				"ERROR: "+ctx.Request().URL.String()+" does not handle WebSocket requests",
			)
			return
		}
		ctx.Next()
	}
}
