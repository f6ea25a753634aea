package reconcile

import (
	"sync"
	"time"

	"binaryTradeBot/internal/domain"
)

// Sink holds the single currently displayed outcome and its auto-dismiss
// timer. Show replaces any displayed outcome in one step, without an
// intermediate clear, so the display layer never renders an empty frame
// between two notifications.
type Sink struct {
	ttl      time.Duration
	onChange func(*domain.SettlementOutcome) // Called with nil on dismiss
	onClear  func(tradeID string)            // Releases the trade's claim

	mu      sync.Mutex
	current *domain.SettlementOutcome
	timer   *time.Timer
}

// NewSink creates a sink with the given display TTL. onChange may be nil;
// onClear is invoked whenever a displayed outcome leaves the sink, by
// timer or by explicit dismissal.
func NewSink(ttl time.Duration, onChange func(*domain.SettlementOutcome), onClear func(tradeID string)) *Sink {
	return &Sink{ttl: ttl, onChange: onChange, onClear: onClear}
}

// Show displays the outcome, replacing any current one, and arms the
// auto-dismiss timer.
func (s *Sink) Show(outcome *domain.SettlementOutcome) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	replaced := s.current
	s.current = outcome
	id := outcome.TradeID
	s.timer = time.AfterFunc(s.ttl, func() { s.expire(id) })
	s.mu.Unlock()

	if replaced != nil && s.onClear != nil && replaced.TradeID != outcome.TradeID {
		s.onClear(replaced.TradeID)
	}
	if s.onChange != nil {
		s.onChange(outcome)
	}
}

// Dismiss clears the sink immediately (user- or timer-triggered).
func (s *Sink) Dismiss() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	cleared := s.current
	s.current = nil
	s.mu.Unlock()

	if cleared == nil {
		return
	}
	if s.onClear != nil {
		s.onClear(cleared.TradeID)
	}
	if s.onChange != nil {
		s.onChange(nil)
	}
}

// expire is the timer path: it only clears when the displayed outcome is
// still the one the timer was armed for.
func (s *Sink) expire(tradeID string) {
	s.mu.Lock()
	if s.current == nil || s.current.TradeID != tradeID {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.timer = nil
	s.mu.Unlock()

	if s.onClear != nil {
		s.onClear(tradeID)
	}
	if s.onChange != nil {
		s.onChange(nil)
	}
}

// Current returns the displayed outcome, or nil when nothing is shown.
func (s *Sink) Current() *domain.SettlementOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
