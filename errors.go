package websockify

import "errors"

var (
	// ErrSocketClosed is returned when sending on or reading from a socket
	// that has already been closed.
	ErrSocketClosed = errors.New("websocket is closed")

	// ErrNoCodec is returned by SendValue and Decode when no codec has been
	// configured on the socket. Use one of the codec middleware or
	// Socket.SetCodec.
	ErrNoCodec = errors.New("no codec set on socket. use SetCodec or add codec middleware")

	// ErrNoSocket is returned by Message methods that need the socket the
	// message arrived on when there is none.
	ErrNoSocket = errors.New("message has no socket")
)
