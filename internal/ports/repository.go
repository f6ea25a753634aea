package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"binaryTradeBot/internal/domain"
)

// HistoryRepository stores settled trade outcomes locally so the client
// keeps a record of what was shown across restarts. The canonical record
// stays with the settlement authority; this is display history only.
type HistoryRepository interface {
	// Append saves an accepted outcome and returns its assigned row id.
	// Appending the same trade id twice returns ErrDuplicateEntry.
	Append(ctx context.Context, outcome *domain.SettlementOutcome, settledAt time.Time) (int64, error)
	// FindRecent retrieves the most recent settled trades for a symbol, up to a limit.
	FindRecent(ctx context.Context, symbol string, limit int) ([]*domain.SettlementOutcome, error)
	// TotalProfit sums the profit over all settled trades.
	TotalProfit(ctx context.Context) (decimal.Decimal, error)
}
