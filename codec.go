package websockify

// Codec encodes values sent with Socket.SendValue and decodes message payloads
// with Message.Decode. Codec middleware such as middleware/json set one on
// each socket as it opens.
type Codec struct {
	// Name identifies the codec, for example "json".
	Name string

	// MessageType is the frame type encoded values are sent as.
	MessageType MessageType

	Marshal   func(from any) ([]byte, error)
	Unmarshal func(data []byte, into any) error
}
