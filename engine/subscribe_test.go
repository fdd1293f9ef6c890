package engine

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"searcher/logger"
	"searcher/types"
)

var upgrader = websocket.Upgrader{}

// wsServer upgrades the given path and hands the connection to serve.
func wsServer(t *testing.T, path string, serve func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("subscription dialed without bearer token, got %q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
	})
	return httptest.NewServer(mux)
}

func wsClient(ts *httptest.Server) *Client {
	return &Client{baseURL: ts.URL, token: "test-token", log: logger.EngineLogger}
}

func TestSubscribeBundleResults(t *testing.T) {
	ts := wsServer(t, pathSubBundleResults, func(conn *websocket.Conn) {
		msg, _ := json.Marshal(types.BundleResult{BundleId: "b1", Status: types.BundleAccepted})
		_ = conn.WriteMessage(websocket.TextMessage, msg)
		// Hold the connection open until the client hangs up
		_, _, _ = conn.ReadMessage()
	})
	defer ts.Close()

	sub, err := wsClient(ts).SubscribeBundleResults()
	if err != nil {
		t.Fatalf("SubscribeBundleResults failed: %v", err)
	}
	defer sub.Close()

	select {
	case res := <-sub.Events():
		if res.BundleId != "b1" || res.Status != types.BundleAccepted {
			t.Errorf("unexpected event: %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bundle result event")
	}
}

func TestSubscribeBundleResultsClosesOnServerEnd(t *testing.T) {
	ts := wsServer(t, pathSubBundleResults, func(conn *websocket.Conn) {
		// Serve nothing and close immediately
	})
	defer ts.Close()

	sub, err := wsClient(ts).SubscribeBundleResults()
	if err != nil {
		t.Fatalf("SubscribeBundleResults failed: %v", err)
	}
	defer sub.Close()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed events channel, got an event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed after server hangup")
	}
}

func TestSubscribePendingTransactionsDropsBadBase64(t *testing.T) {
	notif := pendingTxNotification{
		Transactions: []string{
			base64.StdEncoding.EncodeToString([]byte{0xAA, 0xBB}),
			"!!! not base64 !!!",
		},
	}
	ts := wsServer(t, pathSubPendingTxs, func(conn *websocket.Conn) {
		msg, _ := json.Marshal(notif)
		_ = conn.WriteMessage(websocket.TextMessage, msg)
		_, _, _ = conn.ReadMessage()
	})
	defer ts.Close()

	sub, err := wsClient(ts).SubscribePendingTransactions([]string{"acc1"})
	if err != nil {
		t.Fatalf("SubscribePendingTransactions failed: %v", err)
	}
	defer sub.Close()

	select {
	case batch := <-sub.Packets():
		if len(batch) != 1 {
			t.Fatalf("expected 1 decodable packet, got %d", len(batch))
		}
		if batch[0][0] != 0xAA {
			t.Errorf("packet payload mangled: %v", batch[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pending tx batch")
	}
}
