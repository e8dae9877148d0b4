package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is served same-origin or behind a trusted proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsMessage is one frame of the scan progress stream.
type wsMessage struct {
	Type      string        `json:"type"` // progress | result | error
	Completed int           `json:"completed,omitempty"`
	Total     int           `json:"total,omitempty"`
	Result    *ScanResponse `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ScanWS runs a scan over a websocket, streaming progress frames while
// the scan is in flight. The client sends one ScanRequest JSON frame and
// receives progress frames followed by a single result frame. Closing
// the socket cancels the scan.
// GET /api/scan/ws
func (h *ScanHandler) ScanWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	var payload ScanRequest
	if err := conn.ReadJSON(&payload); err != nil {
		h.logger.WithError(err).Warn("Invalid websocket scan request")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Progress frames and the result frame race on the connection.
	var mu sync.Mutex
	send := func(msg wsMessage) {
		mu.Lock()
		defer mu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			cancel()
		}
	}

	// Watch for the client hanging up mid-scan.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	progress := func(completed, total int) {
		send(wsMessage{Type: "progress", Completed: completed, Total: total})
	}

	resp, _, err := h.runScan(ctx, &payload, "", "", progress)
	if err != nil {
		send(wsMessage{Type: "error", Error: err.Error()})
		return
	}
	send(wsMessage{Type: "result", Result: resp})
}
