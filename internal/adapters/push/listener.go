package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"

	"binaryTradeBot/internal/ports"
)

// Listener implements ports.PushStream over a WebSocket connection to the
// settlement event channel. Delivery is best-effort: messages may be
// dropped by the server or lost across reconnects, which is why the poll
// reconciler and submission fallback exist.
type Listener struct {
	url                  string
	logger               ports.Logger
	maxReconnectAttempts int
	reconnectDelay       time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers []ports.SignalHandler
	closed   bool
}

// Config holds configuration for the push listener.
type Config struct {
	URL                  string
	Logger               ports.Logger
	ReconnectDelay       time.Duration // Initial reconnect delay
	MaxReconnectAttempts int
}

// New creates a new push listener.
func New(cfg Config) (*Listener, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for push listener")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: push URL is required", ports.ErrConfigurationError)
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	attempts := cfg.MaxReconnectAttempts
	if attempts <= 0 {
		attempts = 10
	}
	return &Listener{
		url:                  cfg.URL,
		logger:               cfg.Logger,
		reconnectDelay:       delay,
		maxReconnectAttempts: attempts,
	}, nil
}

// OnSignal registers a handler invoked for every decoded settlement signal.
func (l *Listener) OnSignal(handler ports.SignalHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
}

// Connect dials the push channel and starts the read loop. The loop
// reconnects with jittered exponential backoff until ctx is cancelled or
// the attempt budget is exhausted. An initial dial failure is handled the
// same way as a dropped connection: the read loop keeps retrying it, so a
// push endpoint that is down at startup degrades to delayed push rather
// than no push for the process lifetime.
func (l *Listener) Connect(ctx context.Context) error {
	op := "Connect"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %s", ports.ErrContextCanceled, op, err)
	}
	conn, err := l.dial(ctx)
	l.mu.Lock()
	l.conn = conn
	l.closed = false
	l.mu.Unlock()
	if err != nil {
		l.logger.Warn(ctx, op+": Initial push dial failed, retrying in background", map[string]interface{}{
			"url":   l.url,
			"error": err.Error(),
		})
	} else {
		l.logger.Info(ctx, op+": Push channel connected", map[string]interface{}{"url": l.url})
	}

	go l.readLoop(ctx)
	return nil
}

// Close tears the stream down.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.conn != nil {
		err := l.conn.Close()
		l.conn = nil
		return err
	}
	return nil
}

func (l *Listener) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, l.url, nil)
	return conn, err
}

// readLoop reads messages until the connection drops, then reconnects.
func (l *Listener) readLoop(ctx context.Context) {
	op := "readLoop"
	b := &backoff.Backoff{
		Min:    l.reconnectDelay,
		Max:    30 * time.Second,
		Jitter: true,
	}

	for {
		l.mu.Lock()
		conn := l.conn
		closed := l.closed
		l.mu.Unlock()
		if closed || ctx.Err() != nil {
			return
		}
		if conn == nil {
			// The initial dial failed; establish the connection here.
			if !l.reconnect(ctx, b) {
				l.logger.Error(ctx, fmt.Errorf("max reconnection attempts exceeded"), op+": Giving up on push channel", map[string]interface{}{
					"maxAttempts": l.maxReconnectAttempts,
				})
				return
			}
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err == nil {
			b.Reset()
			l.dispatch(ctx, raw)
			continue
		}

		if ctx.Err() != nil || l.isClosed() {
			return
		}
		l.logger.Warn(ctx, op+": Push channel read failed, reconnecting", map[string]interface{}{"error": err.Error()})

		if !l.reconnect(ctx, b) {
			l.logger.Error(ctx, fmt.Errorf("max reconnection attempts exceeded"), op+": Giving up on push channel", map[string]interface{}{
				"maxAttempts": l.maxReconnectAttempts,
			})
			return
		}
	}
}

// reconnect re-dials with backoff. Returns false once the attempt budget is
// spent or ctx is cancelled.
func (l *Listener) reconnect(ctx context.Context, b *backoff.Backoff) bool {
	op := "reconnect"
	for attempt := 1; attempt <= l.maxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(b.Duration()):
		}
		if l.isClosed() {
			return false
		}

		conn, err := l.dial(ctx)
		if err != nil {
			l.logger.Warn(ctx, op+": Reconnect attempt failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}
		l.mu.Lock()
		if l.conn != nil {
			_ = l.conn.Close()
		}
		l.conn = conn
		l.mu.Unlock()
		l.logger.Info(ctx, op+": Push channel reconnected", map[string]interface{}{"attempt": attempt})
		b.Reset()
		return true
	}
	return false
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// envelope is the wire shape of a push message.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// signalPayload is the loosely-typed completion payload. Optional fields
// default to their zero value; validation happens downstream at the
// reconciliation boundary.
type signalPayload struct {
	TradeID          string          `json:"trade_id"`
	UserID           string          `json:"user_id"`
	Result           string          `json:"result"`
	ExitPrice        float64         `json:"exit_price"`
	ProfitAmount     decimal.Decimal `json:"profit_amount"`
	Amount           decimal.Decimal `json:"amount"`
	EntryPrice       float64         `json:"entry_price"`
	Duration         int             `json:"duration"`
	ProfitPercentage int             `json:"profit_percentage"`
	Timestamp        int64           `json:"timestamp"` // Epoch milliseconds
}

// dispatch decodes a raw message and fans it out to the registered handlers.
// Unknown message types are ignored.
func (l *Listener) dispatch(ctx context.Context, raw []byte) {
	op := "dispatch"
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		l.logger.Warn(ctx, op+": Dropping undecodable push message", map[string]interface{}{"error": err.Error()})
		return
	}

	sigType := ports.SignalType(env.Type)
	if sigType != ports.SignalTradeCompleted && sigType != ports.SignalMobileNotification {
		l.logger.Debug(ctx, op+": Ignoring push message of unknown type", map[string]interface{}{"type": env.Type})
		return
	}

	var payload signalPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		l.logger.Warn(ctx, op+": Dropping push message with undecodable data", map[string]interface{}{
			"type":  env.Type,
			"error": err.Error(),
		})
		return
	}

	ts := time.Now()
	if payload.Timestamp > 0 {
		ts = time.UnixMilli(payload.Timestamp)
	}
	signal := &ports.SettlementSignal{
		Type:             sigType,
		TradeID:          payload.TradeID,
		UserID:           payload.UserID,
		Result:           payload.Result,
		ExitPrice:        payload.ExitPrice,
		ProfitAmount:     payload.ProfitAmount,
		Amount:           payload.Amount,
		EntryPrice:       payload.EntryPrice,
		DurationSeconds:  payload.Duration,
		ProfitPercentage: payload.ProfitPercentage,
		Timestamp:        ts,
	}

	l.mu.Lock()
	handlers := make([]ports.SignalHandler, len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.Unlock()
	for _, h := range handlers {
		h(signal)
	}
}
