package reconcile

import (
	"context"
	"time"

	"binaryTradeBot/internal/ports"
)

// Poller is the periodic reconciliation pass: it re-fetches the user's
// trade list and catches trades that reached a terminal state without the
// push channel reporting it.
type Poller struct {
	client   ports.SettlementClient
	registry *Registry
	claims   *claimSet
	notifier *Notifier
	logger   ports.Logger
	userID   string
	interval time.Duration
}

// NewPoller creates a poll reconciler.
func NewPoller(client ports.SettlementClient, registry *Registry, claims *claimSet, notifier *Notifier, logger ports.Logger, userID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		client:   client,
		registry: registry,
		claims:   claims,
		notifier: notifier,
		logger:   logger,
		userID:   userID,
		interval: interval,
	}
}

// Run ticks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick reconciles the registry against the authority's list once. The
// list request only goes out while there is something to reconcile.
func (p *Poller) tick(ctx context.Context) {
	op := "tick"
	if p.registry.Len() == 0 {
		return
	}

	recs, err := p.client.ListTrades(ctx, p.userID)
	if err != nil {
		p.logger.Warn(ctx, op+": Trade list fetch failed", map[string]interface{}{"error": err.Error()})
		return
	}
	byID := make(map[string]*ports.CanonicalTrade, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}

	// The list request was a suspension point; work from a fresh snapshot.
	for _, t := range p.registry.Snapshot() {
		rec, ok := byID[t.ID]
		if !ok || !rec.Terminal() {
			continue
		}
		if p.claims.Claimed(t.ID) {
			// Push already won the race for this trade.
			continue
		}

		p.logger.Info(ctx, op+": Poll caught terminal trade missed by push", map[string]interface{}{
			"tradeID": t.ID,
			"result":  rec.Result,
		})
		// Build from the fetched record, never from the locally-remembered
		// placement values, which may be stale.
		outcome := outcomeFromCanonical(rec, &t)
		p.notifier.Deliver(ctx, outcome)
	}
}
