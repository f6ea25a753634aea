package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"binaryTradeBot/internal/ports"
)

// Fetcher wraps fetch-by-id with a bounded timeout that cancels its own
// in-flight request. Callers must treat ErrTradeNotFound and ErrTimeout as
// "fall back to provisional data", never as a reason to suppress the
// notification.
type Fetcher struct {
	client  ports.SettlementClient
	timeout time.Duration
	logger  ports.Logger
}

// NewFetcher creates an authoritative fetcher.
func NewFetcher(client ports.SettlementClient, timeout time.Duration, logger ports.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fetcher{client: client, timeout: timeout, logger: logger}
}

// Fetch retrieves the canonical record for the trade, bounded by the
// fetcher's timeout.
func (f *Fetcher) Fetch(ctx context.Context, tradeID string) (*ports.CanonicalTrade, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rec, err := f.client.GetTrade(fetchCtx, tradeID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: fetch of trade %s", ports.ErrTimeout, tradeID)
		}
		f.logger.Debug(ctx, "Authoritative fetch failed", map[string]interface{}{
			"tradeID": tradeID,
			"error":   err.Error(),
		})
		return nil, err
	}
	return rec, nil
}
