// Package websockify lets an HTTP router serve WebSocket connections through
// the same routes and middleware it uses for plain HTTP requests.
//
// Wrap the router with Websockify. Upgrade requests are accepted, a live
// Socket is attached to the request, and the request is run through the
// router like any other. Route handlers retrieve the socket with
// SocketFromRequest, so a single set of routes decides what happens to both
// kinds of traffic.
//
// # Quick Start
//
//	router := navaros.NewRouter()
//
//	router.Get("/http", func(ctx *navaros.Context) {
//	    ctx.Body = "Hello World"
//	})
//
//	router.Get("/echo", func(ctx *navaros.Context) {
//	    socket, ok := websockify.SocketFromRequest(ctx.Request())
//	    if !ok {
//	        ctx.Status = http.StatusBadRequest
//	        return
//	    }
//	    socket.OnMessage(func(msg *websockify.Message) {
//	        _ = msg.Reply(msg.Data)
//	    })
//	})
//
//	app := websockify.Websockify(router)
//	app.ListenAndServe(":8080")
//
// Any http.Handler works as the wrapped router. The navarosws and ginws
// packages provide helpers for navaros and gin.
//
// # Attaching To A Server
//
// To keep control of the server, attach the App to it instead of using the
// App's listen helpers. Attach diverts the server's upgrade requests, which
// also works for TLS servers:
//
//	server := &http.Server{Addr: ":8443", Handler: router}
//	websockify.Websockify(router).Attach(server)
//	server.ListenAndServeTLS("cert.pem", "key.pem")
//
// # Handshake Options
//
// Options configure the handshake. HandleProtocols can select or reject the
// sub-protocols a client offers:
//
//	app := websockify.Websockify(router, websockify.Options{
//	    HandleProtocols: func(protocols []string, req *http.Request) (string, bool) {
//	        if slices.Contains(protocols, "bad_protocol") {
//	            return "", false
//	        }
//	        return protocols[len(protocols)-1], true
//	    },
//	})
//
// # Sockets
//
// A socket's messages are delivered to its OnMessage listeners once the
// router has returned, one at a time and in arrival order, until the
// connection closes. Handlers that prefer to block can call Receive instead.
//
// # WebSocket Middleware
//
// Middleware registered with App.Use runs for upgrade requests only, before
// the router. It can be scoped to a path pattern and can keep the router from
// seeing the upgrade by not calling Next:
//
//	app.Use("/admin", func(ctx *websockify.Context) {
//	    if ctx.Headers().Get("Authorization") == "" {
//	        _ = ctx.Socket().CloseWithStatus(websockify.StatusPolicyViolation, "unauthorized")
//	        return
//	    }
//	    ctx.Next()
//	})
package websockify
