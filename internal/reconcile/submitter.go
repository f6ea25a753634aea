package reconcile

import (
	"context"
	"time"

	"github.com/jpillora/backoff"

	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// Submitter records a trade's outcome at the settlement authority once the
// detector observes expiry. On a successful submission it schedules a
// fallback verification: a delayed re-list of the user's trades that
// produces an authoritative outcome in case neither the push nor the poll
// channel delivers one.
type Submitter struct {
	client        ports.SettlementClient
	registry      *Registry
	claims        *claimSet
	notifier      *Notifier
	logger        ports.Logger
	userID        string
	fallbackDelay time.Duration
	maxAttempts   int
}

// NewSubmitter creates a settlement submitter.
func NewSubmitter(client ports.SettlementClient, registry *Registry, claims *claimSet, notifier *Notifier, logger ports.Logger, userID string, fallbackDelay time.Duration, maxAttempts int) *Submitter {
	if fallbackDelay <= 0 {
		fallbackDelay = 2 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Submitter{
		client:        client,
		registry:      registry,
		claims:        claims,
		notifier:      notifier,
		logger:        logger,
		userID:        userID,
		fallbackDelay: fallbackDelay,
		maxAttempts:   maxAttempts,
	}
}

// Submit sends the observed outcome to the authority, retrying transient
// failures with jittered backoff. On persistent failure the trade stays in
// settling; the poll reconciler remains the backstop once the authority
// eventually records the terminal state on its own.
func (s *Submitter) Submit(ctx context.Context, t domain.Trade, won bool, finalPrice float64) {
	op := "Submit"
	req := ports.CompleteTradeRequest{
		TradeID:    t.ID,
		Won:        won,
		FinalPrice: finalPrice,
		Amount:     t.Amount,
		Direction:  t.Direction,
	}

	b := &backoff.Backoff{Min: 500 * time.Millisecond, Max: 5 * time.Second, Jitter: true}
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		_, err = s.client.CompleteTrade(ctx, req)
		if err == nil {
			break
		}
		s.logger.Warn(ctx, op+": Completion submission failed", map[string]interface{}{
			"tradeID": t.ID,
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.Duration()):
		}
	}
	if err != nil {
		// Trade remains settling. The authority may still record it on its
		// own, in which case the poll reconciler produces the notification.
		s.logger.Error(ctx, err, op+": Giving up on completion submission", map[string]interface{}{
			"tradeID":  t.ID,
			"attempts": s.maxAttempts,
		})
		return
	}

	s.logger.Info(ctx, op+": Completion submitted", map[string]interface{}{"tradeID": t.ID, "won": won})

	// Backstop in case neither push nor poll delivers: after a short delay,
	// verify against the authority's list and notify from there.
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.fallbackDelay):
		}
		s.verify(ctx, t)
	}()
}

// verify is the fallback path. The world may have changed during the
// delay, so every precondition is re-checked before notifying.
func (s *Submitter) verify(ctx context.Context, t domain.Trade) {
	op := "verify"
	if s.claims.Claimed(t.ID) {
		return // Push already produced the notification.
	}
	if s.registry.Find(t.ID) == nil {
		return // Another channel already settled it.
	}

	recs, err := s.client.ListTrades(ctx, s.userID)
	if err != nil {
		s.logger.Warn(ctx, op+": Fallback verification list failed", map[string]interface{}{
			"tradeID": t.ID,
			"error":   err.Error(),
		})
		return
	}

	for _, rec := range recs {
		if rec.ID != t.ID || !rec.Terminal() {
			continue
		}
		// Re-check the claim: a push signal may have landed while the list
		// request was in flight.
		if !s.claims.Claim(t.ID) {
			return
		}
		outcome := outcomeFromCanonical(rec, &t)
		if !s.notifier.Deliver(ctx, outcome) {
			s.claims.Release(t.ID)
		}
		return
	}
}
