package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// Engine assembles the reconciliation components around shared, explicitly
// owned state: one registry, one claim set, one deduplicator, one sink.
// Three channels feed it (push signals, the poll tick, the submission
// fallback) and all of them converge on the notifier.
type Engine struct {
	registry  *Registry
	claims    *claimSet
	sink      *Sink
	processor *Processor
	detector  *Detector
	poller    *Poller
	logger    ports.Logger

	mu     sync.Mutex
	runCtx context.Context
}

// EngineConfig holds the collaborators and tunables for the engine.
type EngineConfig struct {
	Client  ports.SettlementClient
	Feed    ports.PriceFeed
	History ports.HistoryRepository // Optional
	Logger  ports.Logger
	UserID  string

	DetectorInterval    time.Duration
	PollInterval        time.Duration
	FallbackVerifyDelay time.Duration
	FetchTimeout        time.Duration
	DisplayTTL          time.Duration
	PriceGraceWindow    time.Duration
	SubmitRetryAttempts int

	// OnNotification is invoked with the outcome when one is shown and
	// with nil when the sink clears. This plus Dismiss is the entire
	// surface the display layer needs.
	OnNotification func(*domain.SettlementOutcome)
}

// NewEngine wires the reconciliation core.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Client == nil || cfg.Feed == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for reconciliation engine")
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ports.ErrConfigurationError)
	}
	ttl := cfg.DisplayTTL
	if ttl <= 0 {
		ttl = 25 * time.Second
	}

	registry := NewRegistry()
	claims := newClaimSet()
	dedup := NewDeduplicator(cfg.Logger)
	// The sink releases the trade's claim when the notification leaves the
	// display, by timer or by user dismissal.
	sink := NewSink(ttl, cfg.OnNotification, claims.Release)
	notifier := NewNotifier(registry, dedup, sink, cfg.History, cfg.Logger)
	fetcher := NewFetcher(cfg.Client, cfg.FetchTimeout, cfg.Logger)
	submitter := NewSubmitter(cfg.Client, registry, claims, notifier, cfg.Logger, cfg.UserID, cfg.FallbackVerifyDelay, cfg.SubmitRetryAttempts)
	detector := NewDetector(registry, cfg.Feed, submitter, cfg.Logger, cfg.DetectorInterval, cfg.PriceGraceWindow)
	poller := NewPoller(cfg.Client, registry, claims, notifier, cfg.Logger, cfg.UserID, cfg.PollInterval)
	processor := NewProcessor(claims, fetcher, registry, notifier, cfg.Logger)

	return &Engine{
		registry:  registry,
		claims:    claims,
		sink:      sink,
		processor: processor,
		detector:  detector,
		poller:    poller,
		logger:    cfg.Logger,
	}, nil
}

// Run starts the detector and poll loops and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.runCtx = ctx
	e.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.detector.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		e.poller.Run(ctx)
	}()
	wg.Wait()
}

// HandleSignal is the push-channel entry point, suitable for registration
// as a ports.SignalHandler. Processing runs on the engine's run context so
// in-flight authoritative fetches are cancelled on shutdown; signals
// arriving before Run fall back to a background context.
func (e *Engine) HandleSignal(signal *ports.SettlementSignal) {
	e.mu.Lock()
	ctx := e.runCtx
	e.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	e.processor.Handle(ctx, signal)
}

// Track registers a freshly placed trade with the registry. Returns false
// when a trade with the same id is already tracked.
func (e *Engine) Track(trade *domain.Trade) bool {
	return e.registry.Add(trade)
}

// ActiveTrades returns snapshots of all live trades.
func (e *Engine) ActiveTrades() []domain.Trade {
	return e.registry.Snapshot()
}

// CurrentNotification returns the displayed outcome, or nil.
func (e *Engine) CurrentNotification() *domain.SettlementOutcome {
	return e.sink.Current()
}

// DismissNotification clears the displayed outcome immediately.
func (e *Engine) DismissNotification() {
	e.sink.Dismiss()
}
