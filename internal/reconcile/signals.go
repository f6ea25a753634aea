package reconcile

import "sync"

// signalLogCap bounds the processed-signal memory. When exceeded, the
// oldest half is evicted in one sweep rather than entry-by-entry.
const signalLogCap = 100

// signalLog remembers recently processed push signal ids so redeliveries
// of the same send are dropped before any business logic runs.
type signalLog struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string // insertion order, for eviction
}

func newSignalLog() *signalLog {
	return &signalLog{seen: make(map[string]struct{})}
}

// MarkProcessed records the signal id. Returns false when the id was
// already present, i.e. the signal is a duplicate.
func (l *signalLog) MarkProcessed(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[id]; dup {
		return false
	}
	l.seen[id] = struct{}{}
	l.order = append(l.order, id)

	if len(l.order) > signalLogCap {
		evict := l.order[:len(l.order)/2]
		for _, old := range evict {
			delete(l.seen, old)
		}
		l.order = append([]string(nil), l.order[len(l.order)/2:]...)
	}
	return true
}

// Len returns the number of remembered signal ids.
func (l *signalLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
