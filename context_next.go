package websockify

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
)

// Next continues execution to the next WebSocket middleware whose mount
// pattern matches the upgrade path. Once the middleware chain is exhausted,
// the wrapped application handler is served the upgrade request.
//
// If an error is set on the context or the socket is closed, nothing more
// runs.
func (c *Context) Next() {
	if c.Error != nil || c.socket.IsClosed() {
		return
	}

	// walk the chain looking for a handler node with a pattern that matches
	// the path, or until we reach the end of the chain
	for c.currentHandlerNode != nil {

		// A node may hold several handlers. Once a node matches, stay on it
		// until all of its handlers have run.
		if !c.currentHandlerNodeMatches {
			for c.currentHandlerNode != nil {
				if c.currentHandlerNode.tryMatch(c) {
					c.currentHandlerNodeMatches = true
					break
				}
				c.currentHandlerNode = c.currentHandlerNode.Next
			}
			if !c.currentHandlerNodeMatches {
				break
			}
		}

		if c.currentHandlerIndex < len(c.currentHandlerNode.Handlers) {
			c.currentHandler = c.currentHandlerNode.Handlers[c.currentHandlerIndex]
			c.currentHandlerIndex += 1
			break
		}

		c.currentHandlerNode = c.currentHandlerNode.Next
		c.currentHandlerNodeMatches = false
		c.currentHandlerIndex = 0
		c.currentHandler = nil
	}

	if c.currentHandler == nil {
		if !c.chainEnded {
			c.serveFinalHandler()
		}
		return
	}

	currentHandler := c.currentHandler
	c.currentHandler = nil

	if handler, ok := currentHandler.(Handler); ok {
		execWithCtxRecovery(c, func() {
			handler.Handle(c)
		})
	} else if handler, ok := currentHandler.(func(*Context)); ok {
		execWithCtxRecovery(c, func() {
			handler(c)
		})
	} else {
		panic(fmt.Sprintf("Unknown handler type: %s", reflect.TypeOf(currentHandler)))
	}

	// Prevent handlers from calling Next twice, and handlers that returned
	// without calling Next from resuming the chain later
	c.currentHandlerNode = nil
	c.currentHandlerNodeMatches = false
	c.currentHandlerIndex = 0
	c.chainEnded = true
}

func (c *Context) serveFinalHandler() {
	if c.finalHandlerCalled {
		return
	}
	c.finalHandlerCalled = true
	c.chainEnded = true
	if c.finalHandler == nil {
		return
	}
	execWithCtxRecovery(c, func() {
		c.finalHandler.ServeHTTP(c.responseWriter, c.request)
	})
}

func execWithCtxRecovery(ctx *Context, fn func()) {
	defer func() {
		if maybeErr := recover(); maybeErr != nil {
			if err, ok := maybeErr.(error); ok {
				ctx.Error = err
			} else {
				ctx.Error = fmt.Errorf("%s", maybeErr)
			}

			stack := string(debug.Stack())
			stackLines := strings.Split(stack, "\n")
			if len(stackLines) > 6 {
				stackLines = stackLines[6:]
			}
			ctx.ErrorStack = strings.Join(stackLines, "\n")
		}
	}()
	fn()
}
