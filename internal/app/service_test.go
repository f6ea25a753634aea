package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binaryTradeBot/config"
	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}

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

type mockAuthority struct {
	mu         sync.Mutex
	placeTrade *domain.Trade
	placeErr   error
	placeReqs  []ports.PlaceTradeRequest
	list       []*ports.CanonicalTrade
	listErr    error
}

func (m *mockAuthority) PlaceTrade(ctx context.Context, req ports.PlaceTradeRequest) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeReqs = append(m.placeReqs, req)
	return m.placeTrade, m.placeErr
}

func (m *mockAuthority) CompleteTrade(ctx context.Context, req ports.CompleteTradeRequest) (*ports.CanonicalTrade, error) {
	return nil, ports.ErrAuthorityUnavailable
}

func (m *mockAuthority) GetTrade(ctx context.Context, tradeID string) (*ports.CanonicalTrade, error) {
	return nil, ports.ErrTradeNotFound
}

func (m *mockAuthority) ListTrades(ctx context.Context, userID string) ([]*ports.CanonicalTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list, m.listErr
}

func (m *mockAuthority) lastPlaceReq() *ports.PlaceTradeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.placeReqs) == 0 {
		return nil
	}
	req := m.placeReqs[len(m.placeReqs)-1]
	return &req
}

type mockFeed struct {
	price    float64
	ok       bool
	restErr  error
	startErr error
}

func (m *mockFeed) CurrentPrice(symbol string) (float64, bool) { return m.price, m.ok }

func (m *mockFeed) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if m.restErr != nil {
		return 0, m.restErr
	}
	return m.price, nil
}

func (m *mockFeed) Start(ctx context.Context) (<-chan struct{}, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()
	return done, nil
}

type mockPush struct {
	mu         sync.Mutex
	handlers   []ports.SignalHandler
	connectErr error
	connected  bool
}

func (m *mockPush) OnSignal(handler ports.SignalHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

func (m *mockPush) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockPush) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		AuthorityBaseURL:    "http://localhost:8080",
		UserID:              "user-1",
		PushURL:             "ws://localhost:8080/events",
		Symbol:              "BTCUSDT",
		DetectorInterval:    10 * time.Millisecond,
		PollInterval:        15 * time.Millisecond,
		FallbackVerifyDelay: 20 * time.Millisecond,
		FetchTimeout:        100 * time.Millisecond,
		DisplayTTL:          time.Minute,
		PriceGraceWindow:    50 * time.Millisecond,
		SubmitRetryAttempts: 1,
	}
}

func newTestService(t *testing.T, authority *mockAuthority, feed *mockFeed, push *mockPush) *ClientService {
	t.Helper()
	svc, err := NewClientService(testConfig(), &mockLogger{}, authority, feed, push, nil)
	require.NoError(t, err)
	return svc
}

func placedTrade(id string, entryPrice float64) *domain.Trade {
	now := time.Now()
	return &domain.Trade{
		ID:              id,
		Symbol:          "BTCUSDT",
		Direction:       domain.DirectionUp,
		Amount:          decimal.NewFromInt(100),
		DurationSeconds: 60,
		EntryPrice:      entryPrice,
		StartTime:       now,
		EndTime:         now.Add(time.Minute),
		Status:          domain.StatusActive,
	}
}

func TestNewClientServiceValidatesDependencies(t *testing.T) {
	_, err := NewClientService(nil, &mockLogger{}, &mockAuthority{}, &mockFeed{}, &mockPush{}, nil)
	assert.Error(t, err)

	_, err = NewClientService(testConfig(), &mockLogger{}, nil, &mockFeed{}, &mockPush{}, nil)
	assert.Error(t, err)
}

func TestPlaceTradeUsesLivePrice(t *testing.T) {
	authority := &mockAuthority{placeTrade: placedTrade("T1", 50000)}
	feed := &mockFeed{price: 50000, ok: true}
	svc := newTestService(t, authority, feed, &mockPush{})

	trade, err := svc.PlaceTrade(context.Background(), domain.DirectionUp, decimal.NewFromInt(100), 60)
	require.NoError(t, err)
	assert.Equal(t, "T1", trade.ID)

	req := authority.lastPlaceReq()
	require.NotNil(t, req)
	assert.Equal(t, 50000.0, req.EntryPrice)
	assert.Equal(t, "BTCUSDT", req.Symbol)
	assert.NotEmpty(t, req.ClientID)

	active := svc.ActiveTrades()
	require.Len(t, active, 1)
	assert.Equal(t, "T1", active[0].ID)
}

func TestPlaceTradeFallsBackToRESTPrice(t *testing.T) {
	authority := &mockAuthority{placeTrade: placedTrade("T1", 50250)}
	feed := &mockFeed{price: 50250, ok: false} // Stream not warmed up
	svc := newTestService(t, authority, feed, &mockPush{})

	_, err := svc.PlaceTrade(context.Background(), domain.DirectionDown, decimal.NewFromInt(100), 60)
	require.NoError(t, err)
	assert.Equal(t, 50250.0, authority.lastPlaceReq().EntryPrice)
}

func TestPlaceTradeFailsWithoutAnyPrice(t *testing.T) {
	authority := &mockAuthority{}
	feed := &mockFeed{ok: false, restErr: ports.ErrNoLivePrice}
	svc := newTestService(t, authority, feed, &mockPush{})

	_, err := svc.PlaceTrade(context.Background(), domain.DirectionUp, decimal.NewFromInt(100), 60)
	assert.ErrorIs(t, err, ports.ErrNoLivePrice)
	assert.Nil(t, authority.lastPlaceReq(), "no placement request without a price")
}

func TestPlaceTradeValidatesInput(t *testing.T) {
	authority := &mockAuthority{}
	svc := newTestService(t, authority, &mockFeed{price: 50000, ok: true}, &mockPush{})

	_, err := svc.PlaceTrade(context.Background(), domain.DirectionUp, decimal.Zero, 60)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	_, err = svc.PlaceTrade(context.Background(), domain.DirectionUp, decimal.NewFromInt(-10), 60)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	_, err = svc.PlaceTrade(context.Background(), domain.DirectionUp, decimal.NewFromInt(100), 0)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	assert.Nil(t, authority.lastPlaceReq())
}

func TestPlaceTradePropagatesAuthorityError(t *testing.T) {
	authority := &mockAuthority{placeErr: ports.ErrPlacementFailed}
	svc := newTestService(t, authority, &mockFeed{price: 50000, ok: true}, &mockPush{})

	_, err := svc.PlaceTrade(context.Background(), domain.DirectionUp, decimal.NewFromInt(100), 60)
	assert.ErrorIs(t, err, ports.ErrPlacementFailed)
	assert.Empty(t, svc.ActiveTrades())
}

func TestRecoverOpenTrades(t *testing.T) {
	now := time.Now()
	authority := &mockAuthority{
		list: []*ports.CanonicalTrade{
			{
				ID:              "open-1",
				Symbol:          "BTCUSDT",
				Direction:       domain.DirectionUp,
				Amount:          decimal.NewFromInt(100),
				DurationSeconds: 300,
				Result:          ports.ResultPending,
				EntryPrice:      50000,
				CreatedAt:       now.Add(-10 * time.Second),
			},
			{
				ID:        "done-1",
				Symbol:    "BTCUSDT",
				Direction: domain.DirectionUp,
				Amount:    decimal.NewFromInt(100),
				Result:    ports.ResultWin,
				CreatedAt: now.Add(-time.Hour),
			},
		},
	}
	svc := newTestService(t, authority, &mockFeed{price: 50000, ok: true}, &mockPush{})

	require.NoError(t, svc.recoverOpenTrades(context.Background()))

	active := svc.ActiveTrades()
	require.Len(t, active, 1, "only non-terminal trades are recovered")
	assert.Equal(t, "open-1", active[0].ID)
	assert.Equal(t, domain.StatusActive, active[0].Status)
	assert.Equal(t, now.Add(-10*time.Second).Add(300*time.Second).Unix(), active[0].EndTime.Unix())
}

func TestStartSurvivesPushConnectFailure(t *testing.T) {
	authority := &mockAuthority{}
	feed := &mockFeed{price: 50000, ok: true}
	push := &mockPush{connectErr: ports.ErrConnectionFailed}
	svc := newTestService(t, authority, feed, push)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err, "a dead push channel is not fatal")
	case <-time.After(10 * time.Second):
		t.Fatal("service did not stop after context cancellation")
	}
}

func TestStartFailsWhenFeedCannotStart(t *testing.T) {
	svc := newTestService(t, &mockAuthority{}, &mockFeed{startErr: ports.ErrConnectionFailed}, &mockPush{})

	err := svc.Start(context.Background())
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}

func TestDismissNotificationSurface(t *testing.T) {
	svc := newTestService(t, &mockAuthority{}, &mockFeed{price: 50000, ok: true}, &mockPush{})

	assert.Nil(t, svc.CurrentNotification())
	svc.DismissNotification() // No-op when nothing is shown
	assert.Nil(t, svc.CurrentNotification())
}
