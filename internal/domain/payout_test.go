package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercentageFor(t *testing.T) {
	tests := []struct {
		name            string
		durationSeconds int
		want            int
	}{
		{name: "30s", durationSeconds: 30, want: 10},
		{name: "60s", durationSeconds: 60, want: 15},
		{name: "90s", durationSeconds: 90, want: 20},
		{name: "120s", durationSeconds: 120, want: 25},
		{name: "180s", durationSeconds: 180, want: 30},
		{name: "240s", durationSeconds: 240, want: 50},
		{name: "300s", durationSeconds: 300, want: 75},
		{name: "600s", durationSeconds: 600, want: 100},
		{name: "unknown duration defaults", durationSeconds: 999, want: 10},
		{name: "zero defaults", durationSeconds: 0, want: 10},
		{name: "negative defaults", durationSeconds: -5, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentageFor(tt.durationSeconds))
		})
	}
}

func TestApplyPayout(t *testing.T) {
	t.Run("win pays stake plus schedule percentage", func(t *testing.T) {
		o := &SettlementOutcome{Amount: decimal.NewFromInt(100), Won: true}
		o.ApplyPayout(30)

		assert.Equal(t, 10, o.ProfitPercentage)
		assert.True(t, o.ProfitAmount.Equal(decimal.NewFromInt(10)), "profit = %s", o.ProfitAmount)
		assert.True(t, o.Payout.Equal(decimal.NewFromInt(110)), "payout = %s", o.Payout)
	})

	t.Run("loss forfeits the stake", func(t *testing.T) {
		o := &SettlementOutcome{Amount: decimal.NewFromInt(100), Won: false}
		o.ApplyPayout(60)

		assert.Equal(t, 15, o.ProfitPercentage)
		assert.True(t, o.ProfitAmount.Equal(decimal.NewFromInt(-100)))
		assert.True(t, o.Payout.IsZero())
	})

	t.Run("percentage ignores payload-carried values", func(t *testing.T) {
		// A signal may claim any percentage; ApplyPayout always derives it
		// from the schedule.
		o := &SettlementOutcome{Amount: decimal.NewFromInt(50), Won: true, ProfitPercentage: 85}
		o.ApplyPayout(600)
		assert.Equal(t, 100, o.ProfitPercentage)
	})
}

func TestTradeRemaining(t *testing.T) {
	start := time.Now()
	trade := &Trade{
		StartTime: start,
		EndTime:   start.Add(30 * time.Second),
	}

	assert.Equal(t, 30, trade.Remaining(start))
	assert.Equal(t, 1, trade.Remaining(start.Add(29*time.Second+500*time.Millisecond)))
	assert.Equal(t, 0, trade.Remaining(start.Add(30*time.Second)))
	assert.Equal(t, 0, trade.Remaining(start.Add(time.Hour)))
}

func TestTradeScore(t *testing.T) {
	tests := []struct {
		name       string
		direction  Direction
		entryPrice float64
		finalPrice float64
		won        bool
	}{
		{name: "up wins when price rose", direction: DirectionUp, entryPrice: 50000, finalPrice: 51000, won: true},
		{name: "up loses when price fell", direction: DirectionUp, entryPrice: 50000, finalPrice: 49000, won: false},
		{name: "down wins when price fell", direction: DirectionDown, entryPrice: 50000, finalPrice: 49000, won: true},
		{name: "down loses when price rose", direction: DirectionDown, entryPrice: 50000, finalPrice: 51000, won: false},
		{name: "unchanged price loses up", direction: DirectionUp, entryPrice: 50000, finalPrice: 50000, won: false},
		{name: "unchanged price loses down", direction: DirectionDown, entryPrice: 50000, finalPrice: 50000, won: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := &Trade{Direction: tt.direction, EntryPrice: tt.entryPrice}
			assert.Equal(t, tt.won, trade.Score(tt.finalPrice))
		})
	}
}

func TestOutcomeStale(t *testing.T) {
	now := time.Now()
	grace := 30 * time.Second

	t.Run("within window", func(t *testing.T) {
		o := &SettlementOutcome{StartTime: now.Add(-40 * time.Second), DurationSeconds: 30}
		assert.False(t, o.Stale(now, grace))
	})

	t.Run("past window", func(t *testing.T) {
		o := &SettlementOutcome{StartTime: now.Add(-61 * time.Second), DurationSeconds: 30}
		assert.True(t, o.Stale(now, grace))
	})

	t.Run("unknown start time never stale", func(t *testing.T) {
		o := &SettlementOutcome{DurationSeconds: 30}
		assert.False(t, o.Stale(now, grace))
	})
}

func TestOutcomeSettledStatus(t *testing.T) {
	assert.Equal(t, StatusSettledWon, (&SettlementOutcome{Won: true}).SettledStatus())
	assert.Equal(t, StatusSettledLost, (&SettlementOutcome{}).SettledStatus())
}
