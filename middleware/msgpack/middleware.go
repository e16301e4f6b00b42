package msgpack

import (
	"github.com/RobertWHurst/websockify"
	"github.com/vmihailenco/msgpack/v5"
)

// Subprotocol is the WebSocket sub-protocol clients can offer to ask for
// MessagePack encoded messages.
const Subprotocol = "websockify-msgpack"

// Error represents a wrapped error. Sending an Error with Socket.SendValue
// produces a map {"error": "your error message"}.
type Error string

// Codec returns a codec that encodes values as MessagePack binary messages.
func Codec() *websockify.Codec {
	return &websockify.Codec{
		Name:        "msgpack",
		MessageType: websockify.MessageBinary,
		Marshal:     marshal,
		Unmarshal:   msgpack.Unmarshal,
	}
}

// Middleware sets the MessagePack codec on each socket as it opens, so
// handlers can use Socket.SendValue and Message.Decode. Sockets that
// negotiated a different sub-protocol are left alone for other codec
// middleware, and a codec set by earlier middleware is kept.
//
//	app := websockify.Websockify(router, websockify.Options{
//	    Subprotocols: []string{json.Subprotocol, msgpack.Subprotocol},
//	})
//	app.Use(json.Middleware(), msgpack.Middleware())
func Middleware() func(ctx *websockify.Context) {
	return func(ctx *websockify.Context) {
		socket := ctx.Socket()
		if protocol := socket.Subprotocol(); protocol != "" && protocol != Subprotocol {
			ctx.Next()
			return
		}
		if socket.Codec() == nil {
			socket.SetCodec(Codec())
		}
		ctx.Next()
	}
}

func marshal(from any) ([]byte, error) {
	if v, ok := from.(Error); ok {
		from = map[string]any{"error": string(v)}
	}
	return msgpack.Marshal(from)
}
