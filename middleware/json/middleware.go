package json

import (
	"encoding/json"

	"github.com/RobertWHurst/websockify"
)

// Subprotocol is the WebSocket sub-protocol clients can offer to ask for JSON
// encoded messages.
const Subprotocol = "websockify-json"

// Codec returns a codec that encodes values as JSON text messages.
func Codec() *websockify.Codec {
	return &websockify.Codec{
		Name:        "json",
		MessageType: websockify.MessageText,
		Marshal:     marshal,
		Unmarshal:   json.Unmarshal,
	}
}

// Middleware sets the JSON codec on each socket as it opens, so handlers can
// use Socket.SendValue and Message.Decode. Sockets that negotiated a
// different sub-protocol are left alone for other codec middleware, and a
// codec set by earlier middleware is kept.
//
//	app.Use(json.Middleware())
//
//	router.Get("/users", func(ctx *navaros.Context) {
//	    socket, _ := websockify.SocketFromRequest(ctx.Request())
//	    socket.OnMessage(func(msg *websockify.Message) {
//	        var req GetUserRequest
//	        if err := msg.Decode(&req); err != nil {
//	            _ = socket.SendValue(json.Error(err.Error()))
//	            return
//	        }
//	        _ = socket.SendValue(getUser(req.ID))
//	    })
//	})
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
	switch v := from.(type) {
	case []FieldError:
		from = M{
			"error":  "Validation error",
			"fields": genFieldsField(v),
		}
	case FieldError:
		from = M{
			"error":  "Validation error",
			"fields": genFieldsField([]FieldError{v}),
		}
	case Error:
		from = M{"error": string(v)}
	}
	return json.Marshal(from)
}

func genFieldsField(errors []FieldError) []M {
	var fields []M
	for _, err := range errors {
		field := M{}
		field[err.Field] = err.Error
		fields = append(fields, field)
	}
	return fields
}
