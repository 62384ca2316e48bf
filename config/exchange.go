package config

import (
	"time"

	apperrors "crypto-trading-bot/internal/errors"
)

// ExchangeConnectionSpec is the typed connection description handed to exchange clients.
// It is derived from Config on demand and holds no references back into it.
type ExchangeConnectionSpec struct {
	ExchangeID Exchange
	APIKey     string
	APISecret  string
	Passphrase string // Coinbase only, may be empty

	// RateLimit is the minimum spacing between requests.
	RateLimit time.Duration
}

// RateLimitMS returns RateLimit in whole milliseconds.
func (s ExchangeConnectionSpec) RateLimitMS() int64 {
	return s.RateLimit.Milliseconds()
}

// HasCredentials reports whether key and secret are both present.
func (s ExchangeConnectionSpec) HasCredentials() bool {
	return s.APIKey != "" && s.APISecret != ""
}

// ConnectionSpec builds the connection spec for one exchange. Kraken's private key is
// carried as APISecret. Unknown identifiers fail with UnknownExchange.
func ConnectionSpec(cfg *Config, id Exchange) (ExchangeConnectionSpec, error) {
	switch id {
	case ExchangeCoinbase:
		return ExchangeConnectionSpec{
			ExchangeID: ExchangeCoinbase,
			APIKey:     cfg.Coinbase.APIKey,
			APISecret:  cfg.Coinbase.APISecret,
			Passphrase: cfg.Coinbase.APIPassphrase,
			RateLimit:  spacing(cfg.Coinbase.RateLimitPerSecond),
		}, nil
	case ExchangeKraken:
		return ExchangeConnectionSpec{
			ExchangeID: ExchangeKraken,
			APIKey:     cfg.Kraken.APIKey,
			APISecret:  cfg.Kraken.PrivateKey,
			RateLimit:  spacing(cfg.Kraken.RateLimitPerSecond),
		}, nil
	default:
		return ExchangeConnectionSpec{}, apperrors.UnknownExchange(string(id))
	}
}

// spacing converts a per-second ceiling into a request interval, floored at 1ms.
func spacing(perSecond int) time.Duration {
	if perSecond <= 0 {
		return time.Second
	}
	ms := 1000 / perSecond
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}
