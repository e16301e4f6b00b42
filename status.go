package websockify

import (
	"fmt"
	"unicode/utf8"

	"github.com/coder/websocket"
)

// Status is a WebSocket close status code as defined in RFC 6455. It is an
// alias of the coder/websocket status type so values can be passed to either
// package without conversion.
type Status = websocket.StatusCode

// WebSocket close status codes
const (
	StatusNormalClosure           Status = websocket.StatusNormalClosure           // 1000
	StatusGoingAway               Status = websocket.StatusGoingAway               // 1001
	StatusProtocolError           Status = websocket.StatusProtocolError           // 1002
	StatusUnsupportedData         Status = websocket.StatusUnsupportedData         // 1003
	StatusNoStatusRcvd            Status = websocket.StatusNoStatusRcvd            // 1005
	StatusAbnormalClosure         Status = websocket.StatusAbnormalClosure         // 1006
	StatusInvalidFramePayloadData Status = websocket.StatusInvalidFramePayloadData // 1007
	StatusPolicyViolation         Status = websocket.StatusPolicyViolation         // 1008
	StatusMessageTooBig           Status = websocket.StatusMessageTooBig           // 1009
	StatusMandatoryExtension      Status = websocket.StatusMandatoryExtension      // 1010
	StatusInternalError           Status = websocket.StatusInternalError           // 1011
	StatusServiceRestart          Status = websocket.StatusServiceRestart          // 1012
	StatusTryAgainLater           Status = websocket.StatusTryAgainLater           // 1013
	StatusBadGateway              Status = websocket.StatusBadGateway              // 1014
	StatusTLSHandshake            Status = websocket.StatusTLSHandshake            // 1015
)

// CloseSource indicates whether a connection close was initiated by the
// client or the server.
type CloseSource int

const (
	ClientCloseSource CloseSource = iota
	ServerCloseSource
)

func (s CloseSource) String() string {
	if s == ServerCloseSource {
		return "server"
	}
	return "client"
}

// CloseError is returned by a SocketConnection's Read when the peer sent a
// close frame.
type CloseError struct {
	Status Status
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket closed with status %d and reason %q", e.Status, e.Reason)
}

// maxCloseReasonLength is the largest reason that fits in a close frame
// control payload next to the two byte status code.
const maxCloseReasonLength = 123

func truncateCloseReason(reason string) string {
	if len(reason) <= maxCloseReasonLength {
		return reason
	}
	end := maxCloseReasonLength
	for end > 0 && !utf8.RuneStart(reason[end]) {
		end--
	}
	return reason[:end]
}
