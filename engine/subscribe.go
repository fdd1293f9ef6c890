package engine

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"searcher/types"
)

// BundleResultStream is a server-push feed of outcome notifications for
// submitted bundles. The events channel closes when the stream ends for any
// reason, deliberate close included.
type BundleResultStream interface {
	Events() <-chan types.BundleResult
	Close() error
}

// PendingTxStream is the observational mempool feed. Each batch is a list of
// raw transaction packets, not correlated to any bundle identity.
type PendingTxStream interface {
	Packets() <-chan [][]byte
	Close() error
}

// SubscribeBundleResults opens the bundle-result push stream over the
// authenticated channel.
func (c *Client) SubscribeBundleResults() (BundleResultStream, error) {
	conn, err := c.dial(pathSubBundleResults, nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe bundle results failed: %w", err)
	}
	sub := &bundleResultSub{
		wsStream: wsStream{conn: conn, done: make(chan struct{}), log: c.log},
		events:   make(chan types.BundleResult),
	}
	go sub.readPump()
	return sub, nil
}

// SubscribePendingTransactions opens the pending-transaction push stream,
// optionally filtered to packets touching the given accounts.
func (c *Client) SubscribePendingTransactions(accounts []string) (PendingTxStream, error) {
	var query url.Values
	if len(accounts) > 0 {
		query = url.Values{"accounts": []string{strings.Join(accounts, ",")}}
	}
	conn, err := c.dial(pathSubPendingTxs, query)
	if err != nil {
		return nil, fmt.Errorf("subscribe pending transactions failed: %w", err)
	}
	sub := &pendingTxSub{
		wsStream: wsStream{conn: conn, done: make(chan struct{}), log: c.log},
		packets:  make(chan [][]byte),
	}
	go sub.readPump()
	return sub, nil
}

func (c *Client) dial(path string, query url.Values) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("bad block engine url %q: %w", c.baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), c.authHeader())
	if err != nil {
		if resp != nil && (resp.StatusCode == 401 || resp.StatusCode == 403) {
			return nil, fmt.Errorf("%w: dial %s", ErrAuthExpired, path)
		}
		return nil, fmt.Errorf("dial %s failed: %w", path, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, nil
}

// wsStream carries the connection shared by both subscription kinds. Close is
// idempotent so the workflow can tear both streams down unconditionally.
type wsStream struct {
	conn *websocket.Conn
	done chan struct{}
	cl   sync.Once
	log  *slog.Logger
}

func (s *wsStream) Close() error {
	var err error
	s.cl.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

type bundleResultSub struct {
	wsStream
	events chan types.BundleResult
}

func (s *bundleResultSub) Events() <-chan types.BundleResult { return s.events }

func (s *bundleResultSub) readPump() {
	defer close(s.events)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("bundle result stream ended", "err", err)
			}
			return
		}
		var res types.BundleResult
		if err := json.Unmarshal(msg, &res); err != nil {
			s.log.Warn("Undecodable bundle result message, dropped", "err", err)
			continue
		}
		select {
		case s.events <- res:
		case <-s.done:
			return
		}
	}
}

// pendingTxNotification is one pushed batch of raw packets, base64 on the wire.
type pendingTxNotification struct {
	Transactions []string `json:"transactions"`
}

type pendingTxSub struct {
	wsStream
	packets chan [][]byte
}

func (s *pendingTxSub) Packets() <-chan [][]byte { return s.packets }

func (s *pendingTxSub) readPump() {
	defer close(s.packets)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("pending transaction stream ended", "err", err)
			}
			return
		}
		var notif pendingTxNotification
		if err := json.Unmarshal(msg, &notif); err != nil {
			s.log.Warn("Undecodable pending tx notification, dropped", "err", err)
			continue
		}
		batch := make([][]byte, 0, len(notif.Transactions))
		for _, enc := range notif.Transactions {
			raw, err := base64.StdEncoding.DecodeString(enc)
			if err != nil {
				// Malformed packets are observational noise, never errors
				continue
			}
			batch = append(batch, raw)
		}
		select {
		case s.packets <- batch:
		case <-s.done:
			return
		}
	}
}
