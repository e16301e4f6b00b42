package websockify

import (
	"context"
	"errors"

	"github.com/coder/websocket"
)

// SocketConnection is the transport a Socket drives. WebSocketConnection is
// the implementation used for upgraded HTTP requests; other implementations
// let tests and frameworks with their own WebSocket stacks drive a Socket.
//
// Read must return a *CloseError when the peer sent a close frame.
type SocketConnection interface {
	Read(ctx context.Context) (*Message, error)
	Write(ctx context.Context, msg *Message) error
	Close(status Status, reason string) error
}

// WebSocketConnection is a SocketConnection implementation that wraps
// github.com/coder/websocket.Conn.
type WebSocketConnection struct {
	webSocketConnection *websocket.Conn
}

var _ SocketConnection = &WebSocketConnection{}

// NewWebSocketConnection creates a WebSocketConnection from a
// github.com/coder/websocket.Conn.
func NewWebSocketConnection(websocketConnection *websocket.Conn) *WebSocketConnection {
	return &WebSocketConnection{
		webSocketConnection: websocketConnection,
	}
}

// Read reads the next message from the WebSocket connection. Blocks until a
// message arrives or an error occurs.
func (c *WebSocketConnection) Read(ctx context.Context) (*Message, error) {
	messageType, data, err := c.webSocketConnection.Read(ctx)
	if err != nil {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, &CloseError{Status: closeErr.Code, Reason: closeErr.Reason}
		}
		return nil, err
	}

	return &Message{
		Type: messageType,
		Data: data,
	}, nil
}

// Write sends a message to the WebSocket connection.
func (c *WebSocketConnection) Write(ctx context.Context, msg *Message) error {
	return c.webSocketConnection.Write(ctx, msg.Type, msg.Data)
}

// Close closes the WebSocket connection with the given status code and reason.
func (c *WebSocketConnection) Close(status Status, reason string) error {
	return c.webSocketConnection.Close(status, reason)
}

// Subprotocol returns the sub-protocol selected during the handshake.
func (c *WebSocketConnection) Subprotocol() string {
	return c.webSocketConnection.Subprotocol()
}
