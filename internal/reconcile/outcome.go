package reconcile

import (
	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// outcomeFromCanonical builds an authoritative outcome from the fetched
// canonical record. The record's amount, duration and prices win over
// anything remembered locally; the local trade only fills fields the
// authority omits (symbol, direction, start time).
func outcomeFromCanonical(rec *ports.CanonicalTrade, local *domain.Trade) *domain.SettlementOutcome {
	o := &domain.SettlementOutcome{
		TradeID:    rec.ID,
		Symbol:     rec.Symbol,
		Direction:  rec.Direction,
		Amount:     rec.Amount,
		EntryPrice: rec.EntryPrice,
		ExitPrice:  rec.ExitPrice,
		Won:        rec.Won(),
		Source:     domain.SourceAuthoritative,
		StartTime:  rec.CreatedAt,
	}
	duration := rec.DurationSeconds
	if local != nil {
		if o.Symbol == "" {
			o.Symbol = local.Symbol
		}
		if o.Direction == "" {
			o.Direction = local.Direction
		}
		if o.StartTime.IsZero() {
			o.StartTime = local.StartTime
		}
		if duration == 0 {
			duration = local.DurationSeconds
		}
	}
	o.ApplyPayout(duration)
	return o
}

// outcomeFromSignal builds a provisional outcome directly from an event
// payload, for when the authoritative fetch failed or timed out. The
// profit percentage still comes from the payout schedule regardless of
// what the payload claims.
func outcomeFromSignal(sig *ports.SettlementSignal, local *domain.Trade) *domain.SettlementOutcome {
	o := &domain.SettlementOutcome{
		TradeID:    sig.TradeID,
		Amount:     sig.Amount,
		EntryPrice: sig.EntryPrice,
		ExitPrice:  sig.ExitPrice,
		Won:        sig.Won(),
		Source:     domain.SourceProvisional,
	}
	duration := sig.DurationSeconds
	if local != nil {
		o.Symbol = local.Symbol
		o.Direction = local.Direction
		o.StartTime = local.StartTime
		if o.EntryPrice == 0 {
			o.EntryPrice = local.EntryPrice
		}
		if duration == 0 {
			duration = local.DurationSeconds
		}
	}
	o.ApplyPayout(duration)
	return o
}
