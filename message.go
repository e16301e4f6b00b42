package websockify

import (
	"github.com/coder/websocket"
)

// MessageType is the WebSocket data frame type of a message.
type MessageType = websocket.MessageType

const (
	MessageText   MessageType = websocket.MessageText
	MessageBinary MessageType = websocket.MessageBinary
)

// Message is a single data message read from or written to a socket.
type Message struct {
	// Type is the frame type the message arrived with or will be sent as.
	Type MessageType

	// Data is the message payload.
	Data []byte

	socket *Socket
}

// Text returns the payload as a string regardless of the frame type.
func (m *Message) Text() string {
	return string(m.Data)
}

// Socket returns the socket the message arrived on. It is nil for messages
// that were not read from a socket.
func (m *Message) Socket() *Socket {
	return m.socket
}

// Reply sends data back on the socket the message arrived on, using the same
// frame type the message arrived with.
func (m *Message) Reply(data []byte) error {
	if m.socket == nil {
		return ErrNoSocket
	}
	return m.socket.Send(m.Type, data)
}

// Decode unmarshals the payload into the given value with the codec
// configured on the socket. Without a codec the payload can still be copied
// into a *string or *[]byte.
func (m *Message) Decode(into any) error {
	if m.socket == nil {
		return ErrNoSocket
	}
	codec := m.socket.Codec()
	if codec == nil {
		switch raw := into.(type) {
		case *string:
			*raw = string(m.Data)
			return nil
		case *[]byte:
			*raw = append((*raw)[:0], m.Data...)
			return nil
		}
		return ErrNoCodec
	}
	return codec.Unmarshal(m.Data, into)
}
