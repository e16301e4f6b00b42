package websockify

import (
	"bytes"
	"net/http"
)

// maxRecordedBodyLength bounds how much of what the application handler
// writes to an upgraded request is kept.
const maxRecordedBodyLength = 512

// upgradeResponseWriter stands in for the response writer of an upgraded
// request. The handshake hijacked the connection, so writes are recorded
// rather than sent.
type upgradeResponseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

var _ http.ResponseWriter = &upgradeResponseWriter{}

func newUpgradeResponseWriter() *upgradeResponseWriter {
	return &upgradeResponseWriter{header: http.Header{}}
}

func (w *upgradeResponseWriter) Header() http.Header {
	return w.header
}

func (w *upgradeResponseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *upgradeResponseWriter) Write(data []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if remaining := maxRecordedBodyLength - w.body.Len(); remaining > 0 {
		if len(data) > remaining {
			w.body.Write(data[:remaining])
		} else {
			w.body.Write(data)
		}
	}
	return len(data), nil
}
