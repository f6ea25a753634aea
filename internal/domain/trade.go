package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a binary trade.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusActive      TradeStatus = "active"
	StatusSettling    TradeStatus = "settling"
	StatusSettledWon  TradeStatus = "settled-won"
	StatusSettledLost TradeStatus = "settled-lost"
)

// Trade is a single time-boxed directional position. The settlement
// authority assigns the ID at placement time and owns the canonical record;
// this struct is the client's local view of it while the trade is live.
type Trade struct {
	ID              string          // Authority-assigned identifier, unique per trade
	Symbol          string          // Trading symbol (e.g., "BTCUSDT")
	Direction       Direction       // up or down
	Amount          decimal.Decimal // Stake, always positive
	DurationSeconds int             // Fixed trade duration
	EntryPrice      float64         // Price at placement
	StartTime       time.Time       // Timestamp when the trade was placed
	EndTime         time.Time       // StartTime + duration
	Status          TradeStatus     // Current lifecycle state
}

// IsActive reports whether the trade is still counting down.
func (t *Trade) IsActive() bool {
	return t.Status == StatusActive
}

// IsSettling reports whether settlement has been triggered but no outcome
// has been accepted yet.
func (t *Trade) IsSettling() bool {
	return t.Status == StatusSettling
}

// Remaining returns the whole seconds left until expiry, rounded up and
// never negative.
func (t *Trade) Remaining(now time.Time) int {
	d := t.EndTime.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Expired reports whether the trade's end time has passed.
func (t *Trade) Expired(now time.Time) bool {
	return t.Remaining(now) == 0
}

// Score decides win/lose by comparing the final price to the entry price
// against the trade's direction: up wins if the price rose, down wins if
// it fell. An unchanged price loses either way.
func (t *Trade) Score(finalPrice float64) bool {
	if t.Direction == DirectionUp {
		return finalPrice > t.EntryPrice
	}
	return finalPrice < t.EntryPrice
}
