package ports

import "context"

// PriceFeed provides the current price for a symbol. The feed is an external
// collaborator: the client only ever asks "what is the price now" and never
// derives settlement data from anything but the latest observation.
type PriceFeed interface {
	// CurrentPrice returns the most recently streamed price for the symbol.
	// ok is false when no live price has been observed yet.
	CurrentPrice(symbol string) (price float64, ok bool)

	// LastPrice fetches a point-in-time price snapshot over the feed's
	// request API, independent of the stream. Used at placement time when
	// the stream has not warmed up yet.
	LastPrice(ctx context.Context, symbol string) (float64, error)

	// Start begins streaming prices until ctx is cancelled. The returned
	// channel is closed when the stream has fully shut down.
	Start(ctx context.Context) (done <-chan struct{}, err error)
}
