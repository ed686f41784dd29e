package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures the WebSocket signature feed.
type WSConfig struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// SignatureEvent is one logsNotification reduced to what the watcher needs:
// a signature to fetch and classify. Err is non-nil for failed transactions.
type SignatureEvent struct {
	Signature string
	Slot      int64
	Err       interface{}
}

// WSSignatureFeed streams transaction signatures mentioning a single address
// over a logsSubscribe WebSocket subscription. It maintains exactly one
// subscription and resubscribes transparently after reconnects.
type WSSignatureFeed struct {
	endpoint string
	address  string
	config   WSConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool
	reqID  atomic.Uint64

	events chan SignatureEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewWSSignatureFeed connects and subscribes to logs mentioning address.
func NewWSSignatureFeed(ctx context.Context, endpoint, address string, config *WSConfig) (*WSSignatureFeed, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	f := &WSSignatureFeed{
		endpoint: endpoint,
		address:  address,
		config:   cfg,
		events:   make(chan SignatureEvent, 1024),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}
	if err := f.subscribe(); err != nil {
		f.conn.Close()
		return nil, err
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()

	return f, nil
}

// Events returns the signature event stream. Closed when the feed closes.
func (f *WSSignatureFeed) Events() <-chan SignatureEvent {
	return f.events
}

// Close tears down the connection and closes the event channel.
func (f *WSSignatureFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.events)
	return nil
}

func (f *WSSignatureFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	f.conn = conn
	return nil
}

// subscribe sends the logsSubscribe request for the watched address.
// Confirmation is handled in the read loop; the subscription ID is not
// tracked because the feed carries a single subscription.
func (f *WSSignatureFeed) subscribe() error {
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      f.reqID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{f.address}},
			map[string]string{"commitment": CommitmentConfirmed},
		},
	}

	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	if err := f.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads notifications and reconnects with exponential backoff on
// connection errors.
func (f *WSSignatureFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			if !f.waitOrDone(100 * time.Millisecond) {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}
			f.reconnect(reconnectDelay)
			reconnectDelay *= 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}
			continue
		}

		reconnectDelay = f.config.ReconnectDelay
		f.handleMessage(message)
	}
}

// waitOrDone sleeps d; returns false if the feed closed meanwhile.
func (f *WSSignatureFeed) waitOrDone(d time.Duration) bool {
	select {
	case <-f.done:
		return false
	case <-time.After(d):
		return true
	}
}

func (f *WSSignatureFeed) reconnect(delay time.Duration) {
	if !f.waitOrDone(delay) {
		return
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		return
	}
	f.subscribe()
}

func (f *WSSignatureFeed) handleMessage(message []byte) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "logsNotification" || notif.Params == nil {
		return
	}

	value := notif.Params.Result.Value
	event := SignatureEvent{
		Signature: value.Signature,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		event.Slot = notif.Params.Result.Context.Slot
	}

	// Block rather than drop; the buffer absorbs bursts.
	select {
	case f.events <- event:
	case <-f.done:
	}
}

// pingLoop keeps the connection alive.
func (f *WSSignatureFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}

// WebSocket message types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
