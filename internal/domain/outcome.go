package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OutcomeSource tags where an outcome's numeric fields came from.
type OutcomeSource string

const (
	// SourceAuthoritative means the outcome was built from the canonical
	// trade record fetched from the settlement authority.
	SourceAuthoritative OutcomeSource = "authoritative"
	// SourceProvisional means the outcome was built from an event payload
	// and has not been confirmed against the canonical record.
	SourceProvisional OutcomeSource = "provisional"
)

// SettlementOutcome is the final, user-visible result of a trade. It is
// transient: built when a settlement signal is accepted, displayed once,
// never treated as a canonical record.
type SettlementOutcome struct {
	TradeID          string
	Symbol           string
	Direction        Direction
	Amount           decimal.Decimal // Stake
	EntryPrice       float64
	ExitPrice        float64
	Won              bool
	ProfitPercentage int             // Always schedule-derived, never taken from a payload
	ProfitAmount     decimal.Decimal // Positive stake gain on a win, -Amount on a loss
	Payout           decimal.Decimal // Amount + ProfitAmount on a win, zero on a loss
	Source           OutcomeSource

	// Timing fields used by the staleness guard. StartTime is the zero
	// value when no placement time is known for the trade.
	StartTime       time.Time
	DurationSeconds int
}

// ApplyPayout fills ProfitPercentage, ProfitAmount and Payout from the
// payout schedule for the given duration. Won must be set first.
func (o *SettlementOutcome) ApplyPayout(durationSeconds int) {
	o.DurationSeconds = durationSeconds
	o.ProfitPercentage = PercentageFor(durationSeconds)
	if o.Won {
		o.ProfitAmount = o.Amount.Mul(decimal.NewFromInt(int64(o.ProfitPercentage))).Div(decimal.NewFromInt(100))
		o.Payout = o.Amount.Add(o.ProfitAmount)
	} else {
		o.ProfitAmount = o.Amount.Neg()
		o.Payout = decimal.Zero
	}
}

// Stale reports whether the outcome refers to a trade whose expiry lies
// further in the past than the trade duration plus the given grace period.
// Outcomes without a known start time are never considered stale.
func (o *SettlementOutcome) Stale(now time.Time, grace time.Duration) bool {
	if o.StartTime.IsZero() || o.DurationSeconds <= 0 {
		return false
	}
	age := now.Sub(o.StartTime)
	return age > time.Duration(o.DurationSeconds)*time.Second+grace
}

// SettledStatus maps the outcome onto the trade's terminal status.
func (o *SettlementOutcome) SettledStatus() TradeStatus {
	if o.Won {
		return StatusSettledWon
	}
	return StatusSettledLost
}
