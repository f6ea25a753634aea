package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"binaryTradeBot/config"
	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
	"binaryTradeBot/internal/reconcile"
)

// ClientService orchestrates the trading client: it owns the price feed,
// the push channel, the reconciliation engine, and trade placement.
type ClientService struct {
	cfg       *config.Config
	logger    ports.Logger
	authority ports.SettlementClient
	feed      ports.PriceFeed
	push      ports.PushStream
	history   ports.HistoryRepository
	engine    *reconcile.Engine
}

// NewClientService creates a new application service instance.
func NewClientService(
	cfg *config.Config,
	logger ports.Logger,
	authority ports.SettlementClient,
	feed ports.PriceFeed,
	push ports.PushStream,
	history ports.HistoryRepository,
) (*ClientService, error) {

	// Validate dependencies. History is optional; everything else is not.
	if cfg == nil || logger == nil || authority == nil || feed == nil || push == nil {
		return nil, fmt.Errorf("missing required dependencies for ClientService")
	}

	engine, err := reconcile.NewEngine(reconcile.EngineConfig{
		Client:              authority,
		Feed:                feed,
		History:             history,
		Logger:              logger,
		UserID:              cfg.UserID,
		DetectorInterval:    cfg.DetectorInterval,
		PollInterval:        cfg.PollInterval,
		FallbackVerifyDelay: cfg.FallbackVerifyDelay,
		FetchTimeout:        cfg.FetchTimeout,
		DisplayTTL:          cfg.DisplayTTL,
		PriceGraceWindow:    cfg.PriceGraceWindow,
		SubmitRetryAttempts: cfg.SubmitRetryAttempts,
		OnNotification:      makeNotificationLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build reconciliation engine: %w", err)
	}

	return &ClientService{
		cfg:       cfg,
		logger:    logger,
		authority: authority,
		feed:      feed,
		push:      push,
		history:   history,
		engine:    engine,
	}, nil
}

// makeNotificationLogger is the default display layer: it logs what a UI
// would render. A real front end replaces this via the engine surface.
func makeNotificationLogger(logger ports.Logger) func(*domain.SettlementOutcome) {
	return func(o *domain.SettlementOutcome) {
		ctx := context.Background()
		if o == nil {
			logger.Debug(ctx, "Notification cleared")
			return
		}
		logger.Info(ctx, "Trade settled", map[string]interface{}{
			"tradeID": o.TradeID,
			"symbol":  o.Symbol,
			"won":     o.Won,
			"profit":  o.ProfitAmount.String(),
			"payout":  o.Payout.String(),
			"source":  o.Source,
		})
	}
}

// Start runs the client until the context is cancelled or a shutdown
// signal arrives.
func (s *ClientService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting trading client...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	// 1. Start the price feed stream.
	feedDone, err := s.feed.Start(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to start price feed")
		return fmt.Errorf("failed to start price feed: %w", err)
	}
	s.logger.Info(ctx, "Price feed started", map[string]interface{}{"symbol": s.cfg.Symbol})

	// 2. Register the engine on the push channel and connect. A connect
	// failure is not fatal: the poll reconciler covers for a dead push
	// channel, which is the entire point of the redundancy.
	s.push.OnSignal(s.engine.HandleSignal)
	if err := s.push.Connect(ctx); err != nil {
		s.logger.Warn(ctx, "Push channel unavailable, relying on poll reconciliation", map[string]interface{}{"error": err.Error()})
	} else {
		s.logger.Info(ctx, "Push channel connected")
	}
	defer func() {
		if err := s.push.Close(); err != nil {
			s.logger.Warn(ctx, "Error closing push channel", map[string]interface{}{"error": err.Error()})
		}
	}()

	// 3. Recover trades the authority still reports as pending, so a
	// restart does not orphan open trades.
	if err := s.recoverOpenTrades(ctx); err != nil {
		s.logger.Warn(ctx, "Failed to recover open trades", map[string]interface{}{"error": err.Error()})
	}
	s.logHistorySummary(ctx)

	// 4. Run the reconciliation engine loops.
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		s.engine.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Context cancelled, shutting down...")
	case <-feedDone:
		s.logger.Error(ctx, fmt.Errorf("price feed stopped unexpectedly"), "Price feed stream ended")
		cancel()
	}

	select {
	case <-engineDone:
	case <-time.After(5 * time.Second):
		s.logger.Warn(ctx, "Timeout waiting for reconciliation engine to stop")
	}

	s.logger.Info(ctx, "Trading client stopped.")
	return nil
}

// recoverOpenTrades re-registers trades the authority still reports as
// pending, reconstructing their local view from the canonical records.
func (s *ClientService) recoverOpenTrades(ctx context.Context) error {
	recs, err := s.authority.ListTrades(ctx, s.cfg.UserID)
	if err != nil {
		return err
	}
	recovered := 0
	for _, rec := range recs {
		if rec.Terminal() || rec.CreatedAt.IsZero() {
			continue
		}
		trade := &domain.Trade{
			ID:              rec.ID,
			Symbol:          rec.Symbol,
			Direction:       rec.Direction,
			Amount:          rec.Amount,
			DurationSeconds: rec.DurationSeconds,
			EntryPrice:      rec.EntryPrice,
			StartTime:       rec.CreatedAt,
			EndTime:         rec.CreatedAt.Add(time.Duration(rec.DurationSeconds) * time.Second),
			Status:          domain.StatusActive,
		}
		if s.engine.Track(trade) {
			recovered++
		}
	}
	if recovered > 0 {
		s.logger.Info(ctx, "Recovered open trades from authority", map[string]interface{}{"count": recovered})
	}
	return nil
}

// logHistorySummary reports the stored settlement history at startup.
func (s *ClientService) logHistorySummary(ctx context.Context) {
	if s.history == nil {
		return
	}
	total, err := s.history.TotalProfit(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Failed to read settlement history", map[string]interface{}{"error": err.Error()})
		return
	}
	recent, err := s.history.FindRecent(ctx, s.cfg.Symbol, 10)
	if err != nil {
		s.logger.Warn(ctx, "Failed to read recent settlements", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info(ctx, "Settlement history loaded", map[string]interface{}{
		"symbol":      s.cfg.Symbol,
		"recentCount": len(recent),
		"totalProfit": total.String(),
	})
}

// PlaceTrade opens a new time-boxed position and registers it with the
// reconciliation engine.
func (s *ClientService) PlaceTrade(ctx context.Context, direction domain.Direction, amount decimal.Decimal, durationSeconds int) (*domain.Trade, error) {
	op := "PlaceTrade"
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ports.ErrInvalidRequest)
	}
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ports.ErrInvalidRequest)
	}

	// Entry price: prefer the live stream, fall back to a REST snapshot
	// when the stream has not warmed up yet.
	entryPrice, ok := s.feed.CurrentPrice(s.cfg.Symbol)
	if !ok {
		var err error
		entryPrice, err = s.feed.LastPrice(ctx, s.cfg.Symbol)
		if err != nil {
			s.logger.Error(ctx, err, op+": No price available for placement", map[string]interface{}{"symbol": s.cfg.Symbol})
			return nil, fmt.Errorf("cannot place trade without a price: %w", err)
		}
	}

	trade, err := s.authority.PlaceTrade(ctx, ports.PlaceTradeRequest{
		Symbol:          s.cfg.Symbol,
		Direction:       direction,
		Amount:          amount,
		DurationSeconds: durationSeconds,
		EntryPrice:      entryPrice,
		ClientID:        uuid.NewString(),
	})
	if err != nil {
		s.logger.Error(ctx, err, op+": Placement failed", map[string]interface{}{"symbol": s.cfg.Symbol})
		return nil, err
	}

	if !s.engine.Track(trade) {
		// The authority handed out an id we already track; keep the
		// original registration.
		s.logger.Warn(ctx, op+": Duplicate trade id from authority", map[string]interface{}{"tradeID": trade.ID})
	}
	s.logger.Info(ctx, op+": Trade placed", map[string]interface{}{
		"tradeID":    trade.ID,
		"direction":  direction,
		"amount":     amount.String(),
		"duration":   durationSeconds,
		"entryPrice": entryPrice,
	})
	return trade, nil
}

// ActiveTrades returns snapshots of all live trades.
func (s *ClientService) ActiveTrades() []domain.Trade {
	return s.engine.ActiveTrades()
}

// CurrentNotification returns the displayed settlement outcome, or nil.
// Together with DismissNotification this is the entire display surface.
func (s *ClientService) CurrentNotification() *domain.SettlementOutcome {
	return s.engine.CurrentNotification()
}

// DismissNotification clears the displayed outcome immediately.
func (s *ClientService) DismissNotification() {
	s.engine.DismissNotification()
}
