package reconcile

import (
	"context"

	"binaryTradeBot/internal/ports"
)

// Processor applies the reconciliation discipline to push-channel signals:
// signal-level dedup, payload validation, claim check, authoritative
// upgrade, then delivery. It is registered as the PushStream handler.
type Processor struct {
	signals  *signalLog
	claims   *claimSet
	fetcher  *Fetcher
	registry *Registry
	notifier *Notifier
	logger   ports.Logger
}

// NewProcessor creates a push-signal processor.
func NewProcessor(claims *claimSet, fetcher *Fetcher, registry *Registry, notifier *Notifier, logger ports.Logger) *Processor {
	return &Processor{
		signals:  newSignalLog(),
		claims:   claims,
		fetcher:  fetcher,
		registry: registry,
		notifier: notifier,
		logger:   logger,
	}
}

// Handle processes one settlement signal end to end. Both signal kinds go
// through the same path: trade_completed and trigger_mobile_notification
// describe the same underlying event, and the claim set keeps the second
// one from re-firing after the first claimed the trade.
func (p *Processor) Handle(ctx context.Context, sig *ports.SettlementSignal) {
	op := "Handle"

	if !sig.Synthetic() && !p.signals.MarkProcessed(sig.ID()) {
		p.logger.Debug(ctx, op+": Dropping already-processed signal", map[string]interface{}{
			"signalID": sig.ID(),
		})
		return
	}

	// Validate at the boundary, before any business logic.
	if !sig.Amount.IsPositive() {
		p.logger.Warn(ctx, op+": Dropping malformed signal", map[string]interface{}{
			"tradeID": sig.TradeID,
			"type":    sig.Type,
			"amount":  sig.Amount.String(),
		})
		return
	}

	if p.claims.Claimed(sig.TradeID) {
		p.logger.Debug(ctx, op+": Trade already claimed, dropping signal", map[string]interface{}{
			"tradeID": sig.TradeID,
			"type":    sig.Type,
		})
		return
	}

	local := p.registry.Find(sig.TradeID) // May be nil for trades placed elsewhere

	// Try to upgrade to the canonical record. The fetch is a suspension
	// point: the claim is re-checked afterwards via Claim's return value.
	outcome := outcomeFromSignal(sig, local)
	rec, err := p.fetcher.Fetch(ctx, sig.TradeID)
	if err == nil {
		outcome = outcomeFromCanonical(rec, local)
	} else {
		p.logger.Warn(ctx, op+": Authoritative fetch failed, using provisional payload", map[string]interface{}{
			"tradeID": sig.TradeID,
			"error":   err.Error(),
		})
	}

	if !p.claims.Claim(sig.TradeID) {
		p.logger.Debug(ctx, op+": Trade claimed during fetch, dropping signal", map[string]interface{}{
			"tradeID": sig.TradeID,
		})
		return
	}

	p.notifier.Deliver(ctx, outcome)
}
