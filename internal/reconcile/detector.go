package reconcile

import (
	"context"
	"time"

	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// stuckAfter is how long past expiry a trade may sit in settling before
// the detector starts reporting it as stuck.
const stuckAfter = 2 * time.Minute

// Detector runs the expiry tick: it finds trades whose end time has passed
// while still active, scores them against the current price, and hands them
// to the submitter. It never re-submits a trade already settling.
type Detector struct {
	registry   *Registry
	feed       ports.PriceFeed
	submitter  *Submitter
	logger     ports.Logger
	interval   time.Duration
	priceGrace time.Duration // How long settlement may wait for a live price past expiry

	now func() time.Time // test hook
}

// NewDetector creates an expiry detector.
func NewDetector(registry *Registry, feed ports.PriceFeed, submitter *Submitter, logger ports.Logger, interval, priceGrace time.Duration) *Detector {
	if interval <= 0 {
		interval = time.Second
	}
	return &Detector{
		registry:   registry,
		feed:       feed,
		submitter:  submitter,
		logger:     logger,
		interval:   interval,
		priceGrace: priceGrace,
		now:        time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (d *Detector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick evaluates every live trade once.
func (d *Detector) tick(ctx context.Context) {
	now := d.now()
	for _, t := range d.registry.Snapshot() {
		switch t.Status {
		case domain.StatusSettling:
			if since := d.registry.SettlingSince(t.ID, now); since > stuckAfter {
				d.logger.Warn(ctx, "Trade stuck in settling", map[string]interface{}{
					"tradeID":     t.ID,
					"pastExpiry":  since.String(),
					"submittedAt": t.EndTime,
				})
			}
		case domain.StatusActive:
			if t.Remaining(now) > 0 {
				continue
			}
			d.settle(ctx, t, now)
		}
	}
}

// settle scores and submits one expired trade.
func (d *Detector) settle(ctx context.Context, t domain.Trade, now time.Time) {
	finalPrice, ok := d.feed.CurrentPrice(t.Symbol)
	if !ok {
		// No live price: defer settlement and retry on later ticks while
		// within the grace window, rather than silently scoring the trade
		// against its own entry price.
		if now.Sub(t.EndTime) < d.priceGrace {
			d.logger.Debug(ctx, "No live price at expiry, deferring settlement", map[string]interface{}{"tradeID": t.ID})
			return
		}
		d.logger.Warn(ctx, "No live price within grace window, settling at entry price", map[string]interface{}{
			"tradeID":    t.ID,
			"entryPrice": t.EntryPrice,
		})
		finalPrice = t.EntryPrice
	}

	if !d.registry.MarkSettling(t.ID) {
		// Another tick or channel got here first.
		return
	}

	won := t.Score(finalPrice)
	d.logger.Info(ctx, "Trade expired", map[string]interface{}{
		"tradeID":    t.ID,
		"direction":  t.Direction,
		"entryPrice": t.EntryPrice,
		"finalPrice": finalPrice,
		"won":        won,
	})
	go d.submitter.Submit(ctx, t, won, finalPrice)
}
