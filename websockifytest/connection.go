// Package websockifytest provides an in-memory websockify.SocketConnection
// for testing handlers and middleware without a network.
package websockifytest

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/RobertWHurst/websockify"
)

// Connection is an in-memory SocketConnection. The test plays the client:
// Deliver queues messages for the socket to read, Sent returns messages the
// socket wrote, and PeerClose closes the connection from the client side.
type Connection struct {
	// SubprotocolName is reported as the negotiated sub-protocol.
	SubprotocolName string

	incoming chan *websockify.Message
	outgoing chan *websockify.Message
	closed   chan struct{}

	mu          sync.Mutex
	isClosed    bool
	peerClosed  bool
	closeStatus websockify.Status
	closeReason string
}

var _ websockify.SocketConnection = &Connection{}

// NewConnection creates an open connection.
func NewConnection() *Connection {
	return &Connection{
		incoming: make(chan *websockify.Message, 16),
		outgoing: make(chan *websockify.Message, 16),
		closed:   make(chan struct{}),
	}
}

// NewSocket creates a socket over a new connection and returns both.
func NewSocket() (*websockify.Socket, *Connection) {
	connection := NewConnection()
	return websockify.NewSocket(&websockify.ConnectionInfo{Path: "/"}, connection), connection
}

// Read implements websockify.SocketConnection.
func (c *Connection) Read(ctx context.Context) (*websockify.Message, error) {
	select {
	case msg := <-c.incoming:
		return msg, nil
	case <-c.closed:
		return nil, c.readError()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write implements websockify.SocketConnection.
func (c *Connection) Write(ctx context.Context, msg *websockify.Message) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	select {
	case c.outgoing <- msg:
		return nil
	case <-c.closed:
		return net.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements websockify.SocketConnection.
func (c *Connection) Close(status websockify.Status, reason string) error {
	if !c.close(status, reason, false) {
		return net.ErrClosed
	}
	return nil
}

// Subprotocol returns SubprotocolName.
func (c *Connection) Subprotocol() string {
	return c.SubprotocolName
}

// Deliver queues a message for the socket to read.
func (c *Connection) Deliver(messageType websockify.MessageType, data []byte) {
	c.incoming <- &websockify.Message{Type: messageType, Data: data}
}

// DeliverText queues a text message for the socket to read.
func (c *Connection) DeliverText(text string) {
	c.Deliver(websockify.MessageText, []byte(text))
}

// Sent waits up to timeout for the next message written by the socket.
func (c *Connection) Sent(timeout time.Duration) (*websockify.Message, bool) {
	select {
	case msg := <-c.outgoing:
		return msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

// PeerClose closes the connection as if the client had sent a close frame.
func (c *Connection) PeerClose(status websockify.Status, reason string) {
	c.close(status, reason, true)
}

// PeerDrop closes the connection as if the client had vanished without a
// close frame.
func (c *Connection) PeerDrop() {
	c.close(websockify.StatusAbnormalClosure, "", false)
}

// Closed returns a channel closed once either side closed the connection.
func (c *Connection) Closed() <-chan struct{} {
	return c.closed
}

// CloseStatus returns the status and reason of the first close.
func (c *Connection) CloseStatus() (websockify.Status, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeStatus, c.closeReason
}

func (c *Connection) close(status websockify.Status, reason string, byPeer bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return false
	}
	c.isClosed = true
	c.peerClosed = byPeer
	c.closeStatus = status
	c.closeReason = reason
	close(c.closed)
	return true
}

func (c *Connection) readError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.peerClosed {
		return &websockify.CloseError{Status: c.closeStatus, Reason: c.closeReason}
	}
	return net.ErrClosed
}
