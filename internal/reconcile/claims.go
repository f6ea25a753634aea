package reconcile

import "sync"

// claimSet tracks trades for which the push channel (or another channel)
// has already produced a notification. A claim prevents the slower
// channels from re-notifying; it is released when the notification leaves
// the sink.
type claimSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newClaimSet() *claimSet {
	return &claimSet{ids: make(map[string]struct{})}
}

// Claim marks the trade as notified. Returns false when the trade was
// already claimed, so exactly one caller wins a race.
func (c *claimSet) Claim(tradeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.ids[tradeID]; taken {
		return false
	}
	c.ids[tradeID] = struct{}{}
	return true
}

// Claimed reports whether the trade is currently claimed.
func (c *claimSet) Claimed(tradeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, taken := c.ids[tradeID]
	return taken
}

// Release removes the claim. Idempotent.
func (c *claimSet) Release(tradeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, tradeID)
}
