package reconcile

import (
	"sync"
	"time"

	"binaryTradeBot/internal/domain"
)

// Registry is the in-memory set of locally open trades. It owns a trade
// from placement until any channel's settlement signal is accepted, at
// which point the trade is removed and history takes over.
//
// All mutation goes through the registry's methods under its mutex; the
// snapshots handed out are value copies, so readers never observe a
// half-applied transition.
type Registry struct {
	mu     sync.Mutex
	trades map[string]*domain.Trade
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{trades: make(map[string]*domain.Trade)}
}

// Add inserts a new active trade. It is a no-op when a trade with the same
// id is already present; returns false in that case.
func (r *Registry) Add(trade *domain.Trade) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.trades[trade.ID]; exists {
		return false
	}
	t := *trade
	r.trades[trade.ID] = &t
	return true
}

// Remove deletes a trade by id. Idempotent: removing an absent id is a
// no-op.
func (r *Registry) Remove(tradeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trades, tradeID)
}

// Find returns a copy of the trade with the given id, or nil.
func (r *Registry) Find(tradeID string) *domain.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trades[tradeID]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// Snapshot returns value copies of all live trades.
func (r *Registry) Snapshot() []domain.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Trade, 0, len(r.trades))
	for _, t := range r.trades {
		out = append(out, *t)
	}
	return out
}

// Len returns the number of live trades.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trades)
}

// MarkSettling transitions a trade from active to settling. Returns true
// only when this call performed the transition, so concurrent detector
// passes cannot double-submit the same trade.
func (r *Registry) MarkSettling(tradeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trades[tradeID]
	if !ok || t.Status != domain.StatusActive {
		return false
	}
	t.Status = domain.StatusSettling
	return true
}

// SettlingSince returns how long the trade has been past its end time, or
// zero when the trade is absent or not yet expired.
func (r *Registry) SettlingSince(tradeID string, now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trades[tradeID]
	if !ok || now.Before(t.EndTime) {
		return 0
	}
	return now.Sub(t.EndTime)
}
