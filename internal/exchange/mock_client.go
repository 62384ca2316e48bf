package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MockClient is a scripted Client for tests and dry runs. It records every call.
type MockClient struct {
	mu sync.Mutex

	Prices     map[string]decimal.Decimal
	BalanceVal Balance

	TickerErr  error
	BalanceErr error

	// Delay blocks each call until it elapses or the context is done.
	Delay time.Duration

	tickerCalls  []string
	balanceCalls int
	closed       int
}

// NewMockClient creates a mock with a BTC-USD price and a small USD balance.
func NewMockClient() *MockClient {
	return &MockClient{
		Prices: map[string]decimal.Decimal{
			"BTC-USD": decimal.NewFromInt(104500),
		},
		BalanceVal: Balance{Assets: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(1000),
		}},
	}
}

func (m *MockClient) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MockClient) FetchTicker(ctx context.Context, pair string) (Ticker, error) {
	m.mu.Lock()
	m.tickerCalls = append(m.tickerCalls, pair)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return Ticker{}, err
	}
	if m.TickerErr != nil {
		return Ticker{}, m.TickerErr
	}
	return Ticker{Pair: pair, LastPrice: m.Prices[pair], Time: time.Now()}, nil
}

func (m *MockClient) FetchBalance(ctx context.Context) (Balance, error) {
	m.mu.Lock()
	m.balanceCalls++
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return Balance{}, err
	}
	if m.BalanceErr != nil {
		return Balance{}, m.BalanceErr
	}
	return m.BalanceVal, nil
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	return nil
}

// TickerCalls returns the pairs requested so far.
func (m *MockClient) TickerCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tickerCalls...)
}

// BalanceCalls returns how many times FetchBalance was called.
func (m *MockClient) BalanceCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceCalls
}

// Closed returns how many times Close was called.
func (m *MockClient) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
