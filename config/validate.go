package config

import (
	"fmt"

	apperrors "crypto-trading-bot/internal/errors"
)

// ValidationOutcome separates problems that must stop the bot from advisory ones.
type ValidationOutcome struct {
	BlockingErrors []string
	Warnings       []string
}

// OK reports whether there are no blocking errors.
func (o ValidationOutcome) OK() bool {
	return len(o.BlockingErrors) == 0
}

// Err returns a ConfigurationInvalid error listing the blocking errors, or nil.
func (o ValidationOutcome) Err() error {
	if o.OK() {
		return nil
	}
	return apperrors.ConfigurationInvalid(o.BlockingErrors)
}

// Validate checks the cross-field rules that gate trading. It never fails itself; every
// finding is returned in the outcome. Blocking errors are ordered by ActiveExchanges.
func Validate(cfg *Config) ValidationOutcome {
	var out ValidationOutcome

	for _, e := range cfg.activeExchanges {
		if !HasCredentials(cfg, e) {
			out.BlockingErrors = append(out.BlockingErrors, MissingCredentialsMessage(e))
		}
	}

	if cfg.TradingMode == ModeLive && cfg.Environment == EnvDevelopment {
		out.Warnings = append(out.Warnings, "Live trading mode enabled in development environment")
	}

	return out
}

// HasCredentials reports whether the exchange has the secrets it needs for private calls.
// The Coinbase passphrase is optional.
func HasCredentials(cfg *Config, e Exchange) bool {
	switch e {
	case ExchangeCoinbase:
		return cfg.Coinbase.APIKey != "" && cfg.Coinbase.APISecret != ""
	case ExchangeKraken:
		return cfg.Kraken.APIKey != "" && cfg.Kraken.PrivateKey != ""
	default:
		return false
	}
}

// MissingCredentialsMessage is the blocking error text for an exchange without credentials.
func MissingCredentialsMessage(e Exchange) string {
	return fmt.Sprintf("%s API credentials are required but not set", e.DisplayName())
}
