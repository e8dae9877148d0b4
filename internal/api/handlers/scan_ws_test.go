package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/wonny/stockscan/internal/contracts"
)

func TestScanWSStreamsProgressAndResult(t *testing.T) {
	bars := risingBars(130)
	h := newTestHandler(t,
		map[string][]contracts.PriceBar{"005930": bars},
		[]contracts.Security{{Code: "005930", Name: "삼성전자"}},
	)

	srv := httptest.NewServer(http.HandlerFunc(h.ScanWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := backtestPayload(bars)
	delete(payload, "code")
	delete(payload, "name")
	payload["market"] = "KOSPI"
	if err := conn.WriteJSON(payload); err != nil {
		t.Fatalf("send request: %v", err)
	}

	sawProgress := false
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read frame: %v", err)
		}

		switch msg.Type {
		case "progress":
			sawProgress = true
			if msg.Total != 1 {
				t.Errorf("progress total = %d, want 1", msg.Total)
			}
		case "result":
			if !sawProgress {
				t.Error("result arrived without any progress frame")
			}
			if msg.Result == nil || len(msg.Result.Summaries) != 1 {
				t.Fatalf("result = %+v", msg.Result)
			}
			return
		case "error":
			t.Fatalf("scan failed: %s", msg.Error)
		default:
			t.Fatalf("unknown frame type %q", msg.Type)
		}
	}
}

func TestScanWSInvalidRequestClosesQuietly(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	srv := httptest.NewServer(http.HandlerFunc(h.ScanWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("send: %v", err)
	}

	// The server drops the connection without a frame.
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Errorf("expected closed connection, got frame %+v", msg)
	}
}
