package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"binaryTradeBot/internal/domain"
)

// Canonical trade results as reported by the settlement authority.
const (
	ResultWin     = "win"
	ResultLose    = "lose"
	ResultPending = "pending"
)

// CanonicalTrade is the settlement authority's stored record for a trade.
// It is the only trustworthy source for amount, duration, prices and result;
// event payload copies of these fields are provisional.
type CanonicalTrade struct {
	ID              string
	Symbol          string
	Direction       domain.Direction
	Amount          decimal.Decimal
	DurationSeconds int
	Result          string // win, lose or pending
	EntryPrice      float64
	ExitPrice       float64
	Profit          decimal.Decimal
	CreatedAt       time.Time // Placement time; zero when the authority omits it
}

// Terminal reports whether the authority has recorded a final result.
func (c *CanonicalTrade) Terminal() bool {
	return c.Result == ResultWin || c.Result == ResultLose
}

// Won reports whether the recorded result is a win.
func (c *CanonicalTrade) Won() bool {
	return c.Result == ResultWin
}

// PlaceTradeRequest carries the parameters for opening a trade.
type PlaceTradeRequest struct {
	Symbol          string
	Direction       domain.Direction
	Amount          decimal.Decimal
	DurationSeconds int
	EntryPrice      float64
	ClientID        string // Client-generated request id for idempotent placement
}

// CompleteTradeRequest submits a trade's outcome once expiry is detected.
// The authority remains the only writer of the canonical record; the client
// reports what it observed.
type CompleteTradeRequest struct {
	TradeID    string
	Won        bool
	FinalPrice float64
	Amount     decimal.Decimal
	Direction  domain.Direction
}

// SettlementClient defines the interface for the remote settlement authority,
// which owns the canonical trade records.
type SettlementClient interface {
	// PlaceTrade opens a new trade and returns the local view of it,
	// including the authority-assigned id.
	PlaceTrade(ctx context.Context, req PlaceTradeRequest) (*domain.Trade, error)

	// CompleteTrade submits an observed outcome for a trade whose expiry was
	// detected locally. Returns the canonical record when the authority
	// echoes it back.
	CompleteTrade(ctx context.Context, req CompleteTradeRequest) (*CanonicalTrade, error)

	// GetTrade fetches the canonical record for a single trade.
	// Returns ErrTradeNotFound when the authority has no such trade.
	GetTrade(ctx context.Context, tradeID string) (*CanonicalTrade, error)

	// ListTrades fetches all trades for the user, used by the poll
	// reconciler and the submission fallback verification.
	ListTrades(ctx context.Context, userID string) ([]*CanonicalTrade, error)
}
