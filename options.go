package websockify

import (
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// CompressionMode controls permessage-deflate negotiation, see
// github.com/coder/websocket.CompressionMode.
type CompressionMode = websocket.CompressionMode

const (
	CompressionDisabled          CompressionMode = websocket.CompressionDisabled
	CompressionContextTakeover   CompressionMode = websocket.CompressionContextTakeover
	CompressionNoContextTakeover CompressionMode = websocket.CompressionNoContextTakeover
)

// Options configures the WebSocket side of an App. The zero value accepts
// upgrades from any origin without a sub-protocol.
type Options struct {
	// Subprotocols lists the sub-protocols the server supports. The first
	// protocol offered by the client that is in this list is selected.
	Subprotocols []string

	// HandleProtocols, if set, is called with the sub-protocols offered by
	// the client whenever it offers at least one. It returns the protocol to
	// select, or false to reject the handshake with 401 Unauthorized. The
	// application handler never sees rejected requests.
	HandleProtocols func(protocols []string, req *http.Request) (string, bool)

	// OriginPatterns lists host patterns cross origin requests are accepted
	// from, for example "*.example.com". Defaults to every origin.
	OriginPatterns []string

	// InsecureSkipVerify disables origin verification altogether.
	InsecureSkipVerify bool

	// CompressionMode selects permessage-deflate behaviour. The zero value
	// uses the library default.
	CompressionMode CompressionMode

	// ReadLimit is the maximum size in bytes of an incoming message. The
	// zero value uses the library default.
	ReadLimit int64

	// CloseOnErrorStatus closes the socket with StatusPolicyViolation when
	// the application handler answers the upgrade request with a status of
	// 400 or above. The response body, or the status text, is the reason.
	// A socket that a handler has adopted, by registering a listener or
	// sending or receiving a message, is left open whatever the status, as
	// routers like navaros answer 404 when a route leaves the response empty.
	CloseOnErrorStatus bool

	// Logger receives connection lifecycle and error logs. Defaults to a
	// no-op logger.
	Logger *zap.Logger

	// Metrics, if set, is updated as connections and messages come and go.
	Metrics *Metrics
}

func (o *Options) acceptOptions() *websocket.AcceptOptions {
	origins := o.OriginPatterns
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &websocket.AcceptOptions{
		Subprotocols:       o.Subprotocols,
		OriginPatterns:     origins,
		InsecureSkipVerify: o.InsecureSkipVerify,
		CompressionMode:    o.CompressionMode,
	}
}
