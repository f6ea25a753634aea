package authority

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// Client implements ports.SettlementClient against the settlement
// authority's HTTP API using resty.
type Client struct {
	http   *resty.Client
	logger ports.Logger
}

// Config holds configuration for the authority client.
type Config struct {
	BaseURL string
	APIKey  string        // Optional bearer token
	Timeout time.Duration // Per-request timeout; callers can tighten via ctx
	Logger  ports.Logger
}

// New creates a new settlement authority client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for authority client")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: authority base URL is required", ports.ErrConfigurationError)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// Retry transport failures and 5xx; never retry 4xx.
			if err != nil {
				return true
			}
			return resp.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	return &Client{http: httpClient, logger: cfg.Logger}, nil
}

// tradeRecord is the authority's wire representation of a trade.
type tradeRecord struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Direction  string          `json:"direction"`
	Amount     decimal.Decimal `json:"amount"`
	Duration   int             `json:"duration"`
	Result     string          `json:"result"`
	EntryPrice float64         `json:"entry_price"`
	ExitPrice  float64         `json:"exit_price"`
	Profit     decimal.Decimal `json:"profit"`
	CreatedAt  int64           `json:"created_at"` // Epoch milliseconds, 0 when omitted
}

func (r *tradeRecord) toCanonical() *ports.CanonicalTrade {
	rec := &ports.CanonicalTrade{
		ID:              r.ID,
		Symbol:          r.Symbol,
		Direction:       domain.Direction(r.Direction),
		Amount:          r.Amount,
		DurationSeconds: r.Duration,
		Result:          r.Result,
		EntryPrice:      r.EntryPrice,
		ExitPrice:       r.ExitPrice,
		Profit:          r.Profit,
	}
	if r.CreatedAt > 0 {
		rec.CreatedAt = time.UnixMilli(r.CreatedAt)
	}
	return rec
}

type placeTradeBody struct {
	Direction  string          `json:"direction"`
	Amount     decimal.Decimal `json:"amount"`
	Duration   int             `json:"duration"`
	EntryPrice float64         `json:"entry_price"`
	ClientID   string          `json:"client_id,omitempty"`
}

type completeTradeBody struct {
	TradeID    string          `json:"trade_id"`
	Result     string          `json:"result"`
	FinalPrice float64         `json:"final_price"`
	Amount     decimal.Decimal `json:"amount"`
	Direction  string          `json:"direction"`
}

type completeTradeResponse struct {
	Success bool         `json:"success"`
	Trade   *tradeRecord `json:"trade"`
}

// PlaceTrade opens a new trade at the authority.
func (c *Client) PlaceTrade(ctx context.Context, req ports.PlaceTradeRequest) (*domain.Trade, error) {
	op := "PlaceTrade"
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ports.ErrInvalidRequest)
	}

	var rec tradeRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(placeTradeBody{
			Direction:  string(req.Direction),
			Amount:     req.Amount,
			Duration:   req.DurationSeconds,
			EntryPrice: req.EntryPrice,
			ClientID:   req.ClientID,
		}).
		SetResult(&rec).
		Post("/trades/" + req.Symbol)
	if err := c.handleResponse(ctx, resp, err, op); err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrPlacementFailed, err)
	}

	startTime := time.Now().UTC()
	if rec.CreatedAt > 0 {
		startTime = time.UnixMilli(rec.CreatedAt)
	}
	duration := rec.Duration
	if duration == 0 {
		duration = req.DurationSeconds
	}
	trade := &domain.Trade{
		ID:              rec.ID,
		Symbol:          req.Symbol,
		Direction:       req.Direction,
		Amount:          req.Amount,
		DurationSeconds: duration,
		EntryPrice:      req.EntryPrice,
		StartTime:       startTime,
		EndTime:         startTime.Add(time.Duration(duration) * time.Second),
		Status:          domain.StatusActive,
	}
	if trade.ID == "" {
		return nil, fmt.Errorf("%w: authority returned no trade id", ports.ErrPlacementFailed)
	}
	c.logger.Info(ctx, op+": Trade placed", map[string]interface{}{
		"tradeID":  trade.ID,
		"symbol":   trade.Symbol,
		"duration": trade.DurationSeconds,
	})
	return trade, nil
}

// CompleteTrade submits an observed outcome for settlement.
func (c *Client) CompleteTrade(ctx context.Context, req ports.CompleteTradeRequest) (*ports.CanonicalTrade, error) {
	op := "CompleteTrade"
	result := ports.ResultLose
	if req.Won {
		result = ports.ResultWin
	}

	var out completeTradeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(completeTradeBody{
			TradeID:    req.TradeID,
			Result:     result,
			FinalPrice: req.FinalPrice,
			Amount:     req.Amount,
			Direction:  string(req.Direction),
		}).
		SetResult(&out).
		Post("/trades/complete")
	if err := c.handleResponse(ctx, resp, err, op); err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrSubmissionFailed, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: authority rejected completion for trade %s", ports.ErrSubmissionFailed, req.TradeID)
	}
	if out.Trade == nil {
		// The completion was accepted; callers fall back to fetch/list paths
		// for the canonical record.
		return nil, nil
	}
	return out.Trade.toCanonical(), nil
}

// GetTrade fetches the canonical record for a single trade.
func (c *Client) GetTrade(ctx context.Context, tradeID string) (*ports.CanonicalTrade, error) {
	op := "GetTrade"
	var rec tradeRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&rec).
		Get("/trades/" + tradeID)
	if err := c.handleResponse(ctx, resp, err, op); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = tradeID
	}
	return rec.toCanonical(), nil
}

// ListTrades fetches all trades for the user.
func (c *Client) ListTrades(ctx context.Context, userID string) ([]*ports.CanonicalTrade, error) {
	op := "ListTrades"
	var recs []tradeRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&recs).
		Get("/users/" + userID + "/trades")
	if err := c.handleResponse(ctx, resp, err, op); err != nil {
		return nil, err
	}
	out := make([]*ports.CanonicalTrade, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toCanonical())
	}
	return out, nil
}

// handleResponse translates transport and HTTP-status failures into the
// standard ports errors.
func (c *Client) handleResponse(ctx context.Context, resp *resty.Response, err error, op string) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %s", ports.ErrTimeout, op, err)
		}
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %s: %s", ports.ErrContextCanceled, op, err)
		}
		c.logger.Error(ctx, err, op+": Request failed")
		return fmt.Errorf("%w: %s: %s", ports.ErrConnectionFailed, op, err)
	}
	if resp.IsError() {
		switch resp.StatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ports.ErrTradeNotFound, op)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ports.ErrRateLimited, op)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ports.ErrAuthenticationFailed, op)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s: %s", ports.ErrInvalidRequest, op, resp.String())
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s: status %d", ports.ErrAuthorityUnavailable, op, resp.StatusCode())
		}
		return fmt.Errorf("%w: %s: status %d", ports.ErrUnknown, op, resp.StatusCode())
	}
	return nil
}
