package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockSettlementClient struct {
	mu sync.Mutex

	placeTrade *domain.Trade
	placeErr   error

	completeRec   *ports.CanonicalTrade
	completeErr   error
	completeCalls int
	completeReqs  []ports.CompleteTradeRequest

	getRec   *ports.CanonicalTrade
	getErr   error
	getDelay time.Duration
	getCalls int

	list      []*ports.CanonicalTrade
	listErr   error
	listCalls int
}

func (m *mockSettlementClient) PlaceTrade(ctx context.Context, req ports.PlaceTradeRequest) (*domain.Trade, error) {
	return m.placeTrade, m.placeErr
}

func (m *mockSettlementClient) CompleteTrade(ctx context.Context, req ports.CompleteTradeRequest) (*ports.CanonicalTrade, error) {
	m.mu.Lock()
	m.completeCalls++
	m.completeReqs = append(m.completeReqs, req)
	rec, err := m.completeRec, m.completeErr
	m.mu.Unlock()
	return rec, err
}

func (m *mockSettlementClient) GetTrade(ctx context.Context, tradeID string) (*ports.CanonicalTrade, error) {
	m.mu.Lock()
	m.getCalls++
	rec, err, delay := m.getRec, m.getErr, m.getDelay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return rec, err
}

func (m *mockSettlementClient) ListTrades(ctx context.Context, userID string) ([]*ports.CanonicalTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return m.list, m.listErr
}

func (m *mockSettlementClient) completions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

func (m *mockSettlementClient) lastCompletion() *ports.CompleteTradeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.completeReqs) == 0 {
		return nil
	}
	req := m.completeReqs[len(m.completeReqs)-1]
	return &req
}

type mockFeed struct {
	mu    sync.Mutex
	price float64
	ok    bool
}

func (m *mockFeed) CurrentPrice(symbol string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.price, m.ok
}

func (m *mockFeed) LastPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ok {
		return 0, ports.ErrNoLivePrice
	}
	return m.price, nil
}

func (m *mockFeed) Start(ctx context.Context) (<-chan struct{}, error) {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()
	return done, nil
}

func (m *mockFeed) setPrice(price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = price
	m.ok = true
}

// --- Test fixtures ---

func testTrade(id string, durationSeconds int, entryPrice float64, start time.Time) *domain.Trade {
	return &domain.Trade{
		ID:              id,
		Symbol:          "BTCUSDT",
		Direction:       domain.DirectionUp,
		Amount:          decimal.NewFromInt(100),
		DurationSeconds: durationSeconds,
		EntryPrice:      entryPrice,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(durationSeconds) * time.Second),
		Status:          domain.StatusActive,
	}
}

func testCanonical(id string, result string, amount int64, durationSeconds int, entry, exit float64, created time.Time) *ports.CanonicalTrade {
	return &ports.CanonicalTrade{
		ID:              id,
		Symbol:          "BTCUSDT",
		Direction:       domain.DirectionUp,
		Amount:          decimal.NewFromInt(amount),
		DurationSeconds: durationSeconds,
		Result:          result,
		EntryPrice:      entry,
		ExitPrice:       exit,
		CreatedAt:       created,
	}
}

func testSignal(tradeID string, amount int64) *ports.SettlementSignal {
	return &ports.SettlementSignal{
		Type:         ports.SignalTradeCompleted,
		TradeID:      tradeID,
		UserID:       "user-1",
		Result:       ports.ResultWin,
		ExitPrice:    51000,
		ProfitAmount: decimal.NewFromInt(10),
		Amount:       decimal.NewFromInt(amount),
		Timestamp:    time.Now(),
	}
}
