package ports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SignalType identifies the kind of push-channel message.
type SignalType string

const (
	// SignalTradeCompleted is the primary completion event.
	SignalTradeCompleted SignalType = "trade_completed"
	// SignalMobileNotification is a legacy alternate signal for the same
	// underlying completion event, carrying a superset of display fields.
	SignalMobileNotification SignalType = "trigger_mobile_notification"
)

// syntheticIDPrefix marks trade ids injected by test tooling; such signals
// bypass the processed-signal and rate guards.
const syntheticIDPrefix = "test-"

// SettlementSignal is a push-channel message reporting that a trade reached
// a terminal state. Numeric payload fields are provisional: they may be
// missing, default-valued or encode a different payout schedule, and must be
// replaced by the canonical record whenever an authoritative fetch succeeds.
type SettlementSignal struct {
	Type             SignalType
	TradeID          string
	UserID           string
	Result           string          // win or lose as claimed by the payload
	ExitPrice        float64         // Optional
	ProfitAmount     decimal.Decimal // Optional, untrusted
	Amount           decimal.Decimal // Zero when the payload omits it
	EntryPrice       float64         // Optional
	DurationSeconds  int             // Optional
	ProfitPercentage int             // Optional, never trusted
	Timestamp        time.Time
}

// ID derives the dedup identity of the signal from its type, trade, user and
// send time. Two deliveries of the same send collapse to one id; a re-send
// at a later timestamp does not.
func (s *SettlementSignal) ID() string {
	return fmt.Sprintf("%s:%s:%s:%d", s.Type, s.TradeID, s.UserID, s.Timestamp.UnixMilli())
}

// Synthetic reports whether the signal carries a test-injected trade id.
func (s *SettlementSignal) Synthetic() bool {
	return strings.HasPrefix(s.TradeID, syntheticIDPrefix)
}

// Won reports whether the payload claims a win.
func (s *SettlementSignal) Won() bool {
	return s.Result == ResultWin
}

// SignalHandler consumes settlement signals as they arrive.
type SignalHandler func(signal *SettlementSignal)

// PushStream is the asynchronous, best-effort, unordered settlement event
// channel. Delivery is not guaranteed; the poll and fallback paths exist
// because of that.
type PushStream interface {
	// OnSignal registers a handler invoked for every decoded signal.
	// Handlers must be registered before Connect.
	OnSignal(handler SignalHandler)

	// Connect establishes the stream and keeps it alive (with reconnects)
	// until ctx is cancelled.
	Connect(ctx context.Context) error

	// Close tears the stream down.
	Close() error
}
