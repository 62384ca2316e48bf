package exchange

import (
	"net/http"

	"crypto-trading-bot/config"
	apperrors "crypto-trading-bot/internal/errors"
)

// Factory builds a Client for a connection spec. Probes take a Factory so tests can
// substitute mock clients.
type Factory func(spec config.ExchangeConnectionSpec) (Client, error)

type options struct {
	httpClient *http.Client
	baseURL    string
	maxRetries uint64
}

// Option configures clients created by NewClient.
type Option func(*options)

// WithHTTPClient sets the HTTP client. The caller keeps ownership of its transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBaseURL points every endpoint of the client at baseURL, for tests and sandboxes.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithMaxRetries sets how many times a public request is retried.
func WithMaxRetries(n uint64) Option {
	return func(o *options) { o.maxRetries = n }
}

func buildOptions(opts []Option) options {
	o := options{maxRetries: 2}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewClient creates the client for spec.ExchangeID.
func NewClient(spec config.ExchangeConnectionSpec, opts ...Option) (Client, error) {
	switch spec.ExchangeID {
	case config.ExchangeCoinbase:
		return NewCoinbaseClient(spec, opts...), nil
	case config.ExchangeKraken:
		return NewKrakenClient(spec, opts...), nil
	default:
		return nil, apperrors.UnknownExchange(string(spec.ExchangeID))
	}
}

// NewFactory returns a Factory that applies opts to every client.
func NewFactory(opts ...Option) Factory {
	return func(spec config.ExchangeConnectionSpec) (Client, error) {
		return NewClient(spec, opts...)
	}
}
