package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// outcomeRecorder captures every sink transition for later assertions.
type outcomeRecorder struct {
	mu    sync.Mutex
	shown []*domain.SettlementOutcome
}

func (r *outcomeRecorder) record(o *domain.SettlementOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o != nil {
		r.shown = append(r.shown, o)
	}
}

func (r *outcomeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shown)
}

func (r *outcomeRecorder) first() *domain.SettlementOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.shown) == 0 {
		return nil
	}
	return r.shown[0]
}

func newTestEngine(t *testing.T, client *mockSettlementClient, feed *mockFeed, rec *outcomeRecorder) *Engine {
	t.Helper()
	eng, err := NewEngine(EngineConfig{
		Client:              client,
		Feed:                feed,
		Logger:              &mockLogger{},
		UserID:              "user-1",
		DetectorInterval:    10 * time.Millisecond,
		PollInterval:        15 * time.Millisecond,
		FallbackVerifyDelay: 20 * time.Millisecond,
		FetchTimeout:        100 * time.Millisecond,
		DisplayTTL:          time.Minute,
		PriceGraceWindow:    50 * time.Millisecond,
		OnNotification:      rec.record,
	})
	require.NoError(t, err)
	return eng
}

func TestEngineRequiresDependencies(t *testing.T) {
	_, err := NewEngine(EngineConfig{Logger: &mockLogger{}})
	assert.Error(t, err)

	_, err = NewEngine(EngineConfig{
		Client: &mockSettlementClient{},
		Feed:   &mockFeed{},
		Logger: &mockLogger{},
	})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

// TestEngineExactlyOneNotification races all three channels against each
// other for the same expired trade: the expiry detector with its fallback
// verification, the poll reconciler, and a duplicated push signal. Exactly
// one notification may reach the display, carrying the canonical values.
func TestEngineExactlyOneNotification(t *testing.T) {
	start := time.Now().Add(-31 * time.Second)
	canonical := testCanonical("T1", ports.ResultWin, 100, 30, 50000, 51000, start)
	client := &mockSettlementClient{
		completeRec: canonical,
		getRec:      canonical,
		list:        []*ports.CanonicalTrade{canonical},
	}
	feed := &mockFeed{}
	feed.setPrice(51000)
	rec := &outcomeRecorder{}
	eng := newTestEngine(t, client, feed, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)

	require.True(t, eng.Track(testTrade("T1", 30, 50000, start)))

	// Deliver the push signal twice, as a flaky socket would.
	sig := testSignal("T1", 100)
	eng.HandleSignal(sig)
	eng.HandleSignal(sig)

	require.Eventually(t, func() bool { return rec.count() > 0 }, time.Second, 5*time.Millisecond)
	// Leave time for the poll tick and the fallback verification to fire.
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, rec.count(), "every channel raced, one notification shown")
	shown := rec.first()
	require.NotNil(t, shown)
	assert.Equal(t, "T1", shown.TradeID)
	assert.True(t, shown.Won)
	assert.Equal(t, 10, shown.ProfitPercentage)
	assert.True(t, shown.ProfitAmount.Equal(decimal.NewFromInt(10)), "profit = %s", shown.ProfitAmount)
	assert.True(t, shown.Payout.Equal(decimal.NewFromInt(110)), "payout = %s", shown.Payout)
	assert.Empty(t, eng.ActiveTrades())
}

// TestEnginePollBackstopsSilentPush drops the push channel entirely: the
// poll reconciler or the fallback verification must still surface the
// settlement, and still only once.
func TestEnginePollBackstopsSilentPush(t *testing.T) {
	start := time.Now().Add(-31 * time.Second)
	canonical := testCanonical("T1", ports.ResultLose, 100, 30, 50000, 49500, start)
	client := &mockSettlementClient{
		completeRec: canonical,
		list:        []*ports.CanonicalTrade{canonical},
	}
	feed := &mockFeed{}
	feed.setPrice(49500)
	rec := &outcomeRecorder{}
	eng := newTestEngine(t, client, feed, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)

	require.True(t, eng.Track(testTrade("T1", 30, 50000, start)))

	require.Eventually(t, func() bool { return rec.count() > 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, rec.count())
	shown := rec.first()
	require.NotNil(t, shown)
	assert.False(t, shown.Won)
	assert.True(t, shown.Payout.IsZero())
	assert.True(t, shown.ProfitAmount.Equal(decimal.NewFromInt(-100)))
	assert.GreaterOrEqual(t, client.completions(), 1, "expiry must be submitted to the authority")
}

// TestEngineHandleSignalStopsWithRunContext proves push-signal processing
// is bound to the run context: once that context is cancelled, a fetch that
// would otherwise stall for its full timeout returns immediately and the
// signal degrades to the provisional path.
func TestEngineHandleSignalStopsWithRunContext(t *testing.T) {
	start := time.Now().Add(-31 * time.Second)
	client := &mockSettlementClient{
		getRec:   testCanonical("T1", ports.ResultWin, 100, 30, 50000, 51000, start),
		getDelay: 30 * time.Second,
	}
	feed := &mockFeed{}
	feed.setPrice(51000)
	rec := &outcomeRecorder{}
	eng, err := NewEngine(EngineConfig{
		Client:              client,
		Feed:                feed,
		Logger:              &mockLogger{},
		UserID:              "user-1",
		DetectorInterval:    time.Minute,
		PollInterval:        time.Minute,
		FallbackVerifyDelay: time.Minute,
		FetchTimeout:        10 * time.Second, // Far beyond what the test tolerates
		DisplayTTL:          time.Minute,
		OnNotification:      rec.record,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	require.True(t, eng.Track(testTrade("T1", 30, 50000, start)))
	time.Sleep(20 * time.Millisecond) // Let Run store its context
	cancel()

	done := make(chan struct{})
	go func() {
		eng.HandleSignal(testSignal("T1", 100))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("signal handling outlived the run context")
	}

	shown := rec.first()
	require.NotNil(t, shown, "a cancelled fetch still degrades to provisional delivery")
	assert.Equal(t, domain.SourceProvisional, shown.Source)
}

func TestEngineDismissNotification(t *testing.T) {
	start := time.Now().Add(-31 * time.Second)
	canonical := testCanonical("T1", ports.ResultWin, 100, 30, 50000, 51000, start)
	client := &mockSettlementClient{getRec: canonical, list: []*ports.CanonicalTrade{canonical}}
	feed := &mockFeed{}
	feed.setPrice(51000)
	rec := &outcomeRecorder{}
	eng := newTestEngine(t, client, feed, rec)

	require.True(t, eng.Track(testTrade("T1", 30, 50000, start)))
	eng.HandleSignal(testSignal("T1", 100))

	require.NotNil(t, eng.CurrentNotification())
	eng.DismissNotification()
	assert.Nil(t, eng.CurrentNotification())
	eng.DismissNotification() // Idempotent
	assert.Nil(t, eng.CurrentNotification())
}
