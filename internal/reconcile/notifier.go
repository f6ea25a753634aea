package reconcile

import (
	"context"
	"errors"
	"time"

	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// Notifier is the convergence point of all three settlement channels. It
// removes the trade from the registry (any settlement signal proves the
// trade is terminal, accepted for display or not), runs the deduplicator,
// and on acceptance shows the outcome and appends it to history.
type Notifier struct {
	registry *Registry
	dedup    *Deduplicator
	sink     *Sink
	history  ports.HistoryRepository // Optional
	logger   ports.Logger
}

// NewNotifier wires the delivery pipeline. history may be nil.
func NewNotifier(registry *Registry, dedup *Deduplicator, sink *Sink, history ports.HistoryRepository, logger ports.Logger) *Notifier {
	return &Notifier{
		registry: registry,
		dedup:    dedup,
		sink:     sink,
		history:  history,
		logger:   logger,
	}
}

// Deliver routes an outcome through dedup to the sink. Returns true when
// the outcome was accepted and shown.
func (n *Notifier) Deliver(ctx context.Context, outcome *domain.SettlementOutcome) bool {
	n.registry.Remove(outcome.TradeID)

	if !n.dedup.Accept(ctx, outcome) {
		return false
	}

	n.logger.Info(ctx, "Settlement outcome accepted", map[string]interface{}{
		"tradeID": outcome.TradeID,
		"won":     outcome.Won,
		"payout":  outcome.Payout.String(),
		"source":  outcome.Source,
	})
	n.sink.Show(outcome)

	if n.history != nil {
		if _, err := n.history.Append(ctx, outcome, time.Now().UTC()); err != nil {
			if !errors.Is(err, ports.ErrDuplicateEntry) {
				n.logger.Error(ctx, err, "Failed to record settled trade", map[string]interface{}{"tradeID": outcome.TradeID})
			}
		}
	}
	return true
}
