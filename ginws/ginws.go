// Package ginws connects websockify to gin engines.
//
//	engine := gin.New()
//	engine.GET("/chat", ginws.Require(), func(c *gin.Context) {
//	    socket, _ := ginws.Socket(c)
//	    socket.OnMessage(func(msg *websockify.Message) {
//	        _ = msg.Reply(msg.Data)
//	    })
//	})
//	websockify.Websockify(engine).ListenAndServe(":8080")
package ginws

import (
	"net/http"

	"github.com/RobertWHurst/websockify"
	"github.com/gin-gonic/gin"
)

// Socket returns the socket attached to the request of a gin context. ok is
// false for plain HTTP requests.
func Socket(c *gin.Context) (*websockify.Socket, bool) {
	return websockify.SocketFromRequest(c.Request)
}

// Require returns middleware that only lets WebSocket requests through.
// Plain HTTP requests are aborted with 400 Bad Request.
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Socket(c); !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": c.Request.URL.String() + " only handles WebSocket requests",
			})
			return
		}
		c.Next()
	}
}

// Reject returns middleware that only lets plain HTTP requests through. The
// socket of a WebSocket request is closed with a policy violation status and
// the chain is aborted.
func Reject() gin.HandlerFunc {
	return func(c *gin.Context) {
		if socket, ok := Socket(c); ok {
			c.Abort()
			_ = socket.CloseWithStatus(
				websockify.StatusPolicyViolation,
				c.Request.URL.String()+" does not handle WebSocket requests",
			)
			return
		}
		c.Next()
	}
}
