// Package probe checks reachability of exchange APIs and plain HTTP endpoints.
//
// Every probe is bounded by its own timeout, owns the client it creates and closes it
// on every return path. Failures are reported as check results, never as errors.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"crypto-trading-bot/config"
	"crypto-trading-bot/internal/check"
	apperrors "crypto-trading-bot/internal/errors"
	"crypto-trading-bot/internal/exchange"
	"crypto-trading-bot/internal/logging"

	"github.com/gorilla/websocket"
)

// DefaultPair is the market used for public ticker probes.
const DefaultPair = "BTC-USD"

// Prober runs connectivity probes.
type Prober struct {
	factory exchange.Factory
	newHTTP HTTPClientFactory
	dialer  *websocket.Dialer
	pair    string
}

// Option configures a Prober.
type Option func(*Prober)

// WithPair sets the pair used for ticker probes.
func WithPair(pair string) Option {
	return func(p *Prober) { p.pair = pair }
}

// HTTPClientFactory builds the client owned by a single ProbeURL call.
type HTTPClientFactory func(timeout time.Duration) *http.Client

// WithHTTPClientFactory sets how ProbeURL builds its per-call client.
func WithHTTPClientFactory(f HTTPClientFactory) Option {
	return func(p *Prober) { p.newHTTP = f }
}

// NewHTTPClient returns a client with its own transport. The context deadline bounds
// the request; the client timeout is a backstop one second later.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
		Timeout:   timeout + time.Second,
	}
}

// WithDialer sets the websocket dialer used by ProbeStream.
func WithDialer(d *websocket.Dialer) Option {
	return func(p *Prober) { p.dialer = d }
}

// New creates a Prober building exchange clients with factory. A nil factory uses
// exchange.NewClient with default options.
func New(factory exchange.Factory, opts ...Option) *Prober {
	if factory == nil {
		factory = exchange.NewFactory()
	}
	p := &Prober{
		factory: factory,
		newHTTP: NewHTTPClient,
		dialer:  websocket.DefaultDialer,
		pair:    DefaultPair,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProbeExchange checks one exchange. The public ticker is always tried first; the
// private balance endpoint only in live mode. Exchanges without credentials are skipped.
func (p *Prober) ProbeExchange(ctx context.Context, spec config.ExchangeConnectionSpec, mode config.TradingMode, timeout time.Duration) check.Result {
	name := string(spec.ExchangeID)
	start := time.Now()
	log := logging.ExchangeContext(ctx, name)

	if !spec.HasCredentials() {
		log.Warn("Skipping exchange probe, API credentials not set")
		return check.Skip(name, "API credentials not set").Timed(start)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := p.factory(spec)
	if err != nil {
		return check.Fail(name, apperrors.New(apperrors.KindProbeFailure, "create client", err).Error()).Timed(start)
	}
	defer client.Close()

	ticker, err := client.FetchTicker(ctx, p.pair)
	if err != nil {
		res := failure(ctx, name, "fetch ticker", err, timeout, start)
		log.Error("Public API check failed", "error", res.Detail)
		return res.Timed(start)
	}
	detail := fmt.Sprintf("public API ok, %s last %s", p.pair, ticker.LastPrice.String())
	log.Info("Public API working", "pair", p.pair, "last", ticker.LastPrice.String())

	if mode == config.ModeLive {
		bal, err := client.FetchBalance(ctx)
		if err != nil {
			res := failure(ctx, name, "fetch balance", err, timeout, start)
			log.Error("Private API check failed", "error", res.Detail)
			return res.Timed(start)
		}
		// balances are never logged
		detail += fmt.Sprintf("; private API ok, %d funded currencies", bal.Currencies())
		log.Info("Private API working")
	}

	return check.Pass(name, detail).Timed(start)
}

// ProbeURL issues a GET to url with a client owned by this call and released on return.
// Any response below 500 counts as reachable.
func (p *Prober) ProbeURL(ctx context.Context, name, url string, timeout time.Duration) check.Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return check.Fail(name, apperrors.New(apperrors.KindProbeFailure, "invalid URL", err).Error()).Timed(start)
	}
	client := p.newHTTP(timeout)
	defer client.CloseIdleConnections()

	resp, err := client.Do(req)
	if err != nil {
		return failure(ctx, name, "GET "+url, err, timeout, start).Timed(start)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return check.Fail(name, apperrors.New(apperrors.KindProbeFailure, fmt.Sprintf("GET %s: HTTP %d", url, resp.StatusCode), nil).Error()).Timed(start)
	}
	return check.Pass(name, fmt.Sprintf("HTTP %d", resp.StatusCode)).Timed(start)
}

// failure converts err into a failed result, reporting deadline expiry as a timeout.
func failure(ctx context.Context, name, op string, err error, timeout time.Duration, start time.Time) check.Result {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		limit := timeout
		if elapsed := time.Since(start); elapsed < timeout {
			// the caller's deadline expired before ours
			limit = elapsed.Round(time.Millisecond)
		}
		return check.Fail(name, fmt.Sprintf("timeout after %s", limit))
	}
	return check.Fail(name, apperrors.New(apperrors.KindProbeFailure, op, err).Error())
}
