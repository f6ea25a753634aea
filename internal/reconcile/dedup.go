package reconcile

import (
	"context"
	"strings"
	"sync"
	"time"

	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

const (
	// stalenessGrace is added to a trade's duration when judging whether a
	// settlement signal arrived too late to still be shown.
	stalenessGrace = 30 * time.Second
	// rateWindow suppresses a second notification for the same trade id
	// arriving within this window of the first.
	rateWindow = 5 * time.Second
	// recentRetention bounds the recent-notification map: entries older
	// than this are pruned on every accept.
	recentRetention = 10 * time.Minute
)

// Deduplicator is the single choke point deciding whether a settlement
// outcome may be shown. Every channel (push, poll, submission fallback)
// must route its outcome through Accept; whichever signal survives is the
// one and only displayed outcome for that trade.
type Deduplicator struct {
	logger ports.Logger

	mu     sync.Mutex
	recent map[string]time.Time // tradeID → last shown

	now func() time.Time // test hook
}

// NewDeduplicator creates a deduplicator with empty state.
func NewDeduplicator(logger ports.Logger) *Deduplicator {
	return &Deduplicator{
		logger: logger,
		recent: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Accept reports whether the outcome should be shown. Rules, in order:
// staleness guard, per-trade rate guard, then record-and-accept.
func (d *Deduplicator) Accept(ctx context.Context, outcome *domain.SettlementOutcome) bool {
	now := d.now()

	if outcome.Stale(now, stalenessGrace) {
		d.logger.Warn(ctx, "Rejecting stale settlement signal", map[string]interface{}{
			"tradeID":   outcome.TradeID,
			"startTime": outcome.StartTime,
			"duration":  outcome.DurationSeconds,
		})
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.recent[outcome.TradeID]; ok && now.Sub(last) < rateWindow && !syntheticID(outcome.TradeID) {
		d.logger.Debug(ctx, "Rejecting duplicate settlement signal", map[string]interface{}{
			"tradeID":   outcome.TradeID,
			"lastShown": last,
		})
		return false
	}

	d.recent[outcome.TradeID] = now
	for id, shownAt := range d.recent {
		if now.Sub(shownAt) > recentRetention {
			delete(d.recent, id)
		}
	}
	return true
}

// syntheticID mirrors ports.SettlementSignal.Synthetic for bare trade ids.
func syntheticID(tradeID string) bool {
	return strings.HasPrefix(tradeID, "test-")
}
