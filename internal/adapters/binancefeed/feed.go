package binancefeed

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"

	"binaryTradeBot/internal/ports"
)

// Feed implements ports.PriceFeed on Binance spot market data. It streams
// aggregated trades for a single symbol into an in-memory last-price cache
// and exposes a REST snapshot for callers that cannot wait for the stream.
type Feed struct {
	client               *binance.Client
	symbol               string
	logger               ports.Logger
	reconnectDelay       time.Duration
	maxReconnectAttempts int

	mu        sync.RWMutex
	lastPrice float64
	updatedAt time.Time
}

// Config holds configuration for the Binance price feed.
type Config struct {
	APIKey               string // Optional; market data endpoints are public
	SecretKey            string
	UseTestnet           bool
	Symbol               string
	Logger               ports.Logger
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// New creates a new Binance price feed.
func New(cfg Config) (*Feed, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for binance feed")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ports.ErrConfigurationError)
	}
	binance.UseTestnet = cfg.UseTestnet

	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	attempts := cfg.MaxReconnectAttempts
	if attempts <= 0 {
		attempts = 10
	}
	return &Feed{
		client:               binance.NewClient(cfg.APIKey, cfg.SecretKey),
		symbol:               cfg.Symbol,
		logger:               cfg.Logger,
		reconnectDelay:       delay,
		maxReconnectAttempts: attempts,
	}, nil
}

// CurrentPrice returns the most recently streamed price for the symbol.
// ok is false when no live price has been observed yet or the symbol does
// not match the feed's subscription.
func (f *Feed) CurrentPrice(symbol string) (float64, bool) {
	if symbol != f.symbol {
		return 0, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.updatedAt.IsZero() {
		return 0, false
	}
	return f.lastPrice, true
}

// LastPrice fetches a point-in-time price snapshot over REST.
func (f *Feed) LastPrice(ctx context.Context, symbol string) (float64, error) {
	op := "LastPrice"
	prices, err := f.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		f.logger.Error(ctx, err, op+": Failed to fetch ticker price", map[string]interface{}{"symbol": symbol})
		return 0, fmt.Errorf("%w: %s", ports.ErrNoLivePrice, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: no ticker returned for %s", ports.ErrNoLivePrice, symbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparsable ticker price %q", ports.ErrNoLivePrice, prices[0].Price)
	}
	return price, nil
}

// Start begins streaming aggregated trade prices until ctx is cancelled.
// The returned channel is closed when the stream loop has fully exited,
// whether by cancellation or by exhausting the reconnect budget.
func (f *Feed) Start(ctx context.Context) (<-chan struct{}, error) {
	op := "Start"
	done := make(chan struct{})

	handler := func(event *binance.WsAggTradeEvent) {
		price, err := strconv.ParseFloat(event.Price, 64)
		if err != nil {
			f.logger.Warn(ctx, op+": Dropping unparsable trade price", map[string]interface{}{"price": event.Price})
			return
		}
		f.mu.Lock()
		f.lastPrice = price
		f.updatedAt = time.Now()
		f.mu.Unlock()
	}
	errHandler := func(err error) {
		f.logger.Warn(ctx, op+": Price stream error reported", map[string]interface{}{"symbol": f.symbol, "error": err.Error()})
	}

	// Reconnection loop, same shape as the push listener: the adapter owns
	// keeping the stream alive, callers only observe the cache.
	go func() {
		defer close(done)
		attempt := 0
		for {
			if ctx.Err() != nil {
				return
			}
			innerDone, innerStop, connectErr := binance.WsAggTradeServe(f.symbol, handler, errHandler)
			if connectErr != nil {
				attempt++
				if attempt >= f.maxReconnectAttempts {
					f.logger.Error(ctx, connectErr, op+": Max reconnection attempts exceeded, price stream stopped", map[string]interface{}{
						"symbol":      f.symbol,
						"maxAttempts": f.maxReconnectAttempts,
					})
					return
				}
				delay := f.reconnectDelay * time.Duration(1<<uint(attempt-1))
				f.logger.Warn(ctx, op+": Price stream connection failed, retrying", map[string]interface{}{
					"symbol":  f.symbol,
					"attempt": attempt,
					"delay":   delay.String(),
				})
				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return
				}
			}

			f.logger.Info(ctx, op+": Price stream connected", map[string]interface{}{"symbol": f.symbol})
			attempt = 0

			select {
			case <-innerDone:
				f.logger.Warn(ctx, op+": Price stream closed unexpectedly, reconnecting", map[string]interface{}{"symbol": f.symbol})
			case <-ctx.Done():
				select {
				case innerStop <- struct{}{}:
				default:
				}
				return
			}
		}
	}()

	return done, nil
}
