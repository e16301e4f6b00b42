package protobuf

import (
	"errors"

	"github.com/RobertWHurst/websockify"
	"google.golang.org/protobuf/proto"
)

// Subprotocol is the WebSocket sub-protocol clients can offer to ask for
// protobuf encoded messages.
const Subprotocol = "websockify-protobuf"

var errNotProtoMessage = errors.New("value must implement proto.Message (generated protobuf struct)")

// Codec returns a codec that encodes proto.Message values as binary messages.
// Values that are not proto.Message are rejected.
func Codec() *websockify.Codec {
	return &websockify.Codec{
		Name:        "protobuf",
		MessageType: websockify.MessageBinary,
		Marshal: func(from any) ([]byte, error) {
			protoMsg, ok := from.(proto.Message)
			if !ok {
				return nil, errNotProtoMessage
			}
			return proto.Marshal(protoMsg)
		},
		Unmarshal: func(data []byte, into any) error {
			protoMsg, ok := into.(proto.Message)
			if !ok {
				return errNotProtoMessage
			}
			return proto.Unmarshal(data, protoMsg)
		},
	}
}

// Middleware sets the protobuf codec on each socket as it opens. Define your
// messages in .proto files, generate Go code with protoc, and send and decode
// the generated types directly:
//
//	app.Use(protobuf.Middleware())
//
//	socket.OnMessage(func(msg *websockify.Message) {
//	    var req userpb.GetUserRequest
//	    if err := msg.Decode(&req); err != nil {
//	        return
//	    }
//	    _ = socket.SendValue(&userpb.GetUserResponse{Name: "Alice"})
//	})
//
// Sockets that negotiated a different sub-protocol are left alone for other
// codec middleware, and a codec set by earlier middleware is kept.
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
