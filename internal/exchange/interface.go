// Package exchange provides minimal REST clients for the supported exchanges. Only the
// calls preflight needs are implemented: a public ticker and an authenticated balance.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Client defines the exchange operations used by connectivity probes.
// A client is owned by one caller and must be closed when done.
type Client interface {
	// FetchTicker returns the last traded price for a pair written as BASE-QUOTE.
	FetchTicker(ctx context.Context, pair string) (Ticker, error)

	// FetchBalance returns account balances. Requires credentials.
	FetchBalance(ctx context.Context) (Balance, error)

	// Close releases idle connections held by the client.
	Close() error
}

// Ticker is the last trade for a pair.
type Ticker struct {
	Pair      string
	LastPrice decimal.Decimal
	Time      time.Time
}

// Balance maps currency code to total holdings.
type Balance struct {
	Assets map[string]decimal.Decimal
}

// Currencies returns the number of currencies with a non-zero balance.
func (b Balance) Currencies() int {
	n := 0
	for _, v := range b.Assets {
		if !v.IsZero() {
			n++
		}
	}
	return n
}

// Ensure implementations satisfy the interface
var (
	_ Client = (*CoinbaseClient)(nil)
	_ Client = (*KrakenClient)(nil)
	_ Client = (*MockClient)(nil)
)
