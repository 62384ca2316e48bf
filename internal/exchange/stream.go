package exchange

import "crypto-trading-bot/config"

// Public market-data websocket endpoints.
const (
	CoinbaseStreamURL = "wss://ws-feed.exchange.coinbase.com"
	KrakenStreamURL   = "wss://ws.kraken.com/v2"
)

// StreamURL returns the public websocket endpoint for an exchange, or "" if unknown.
func StreamURL(id config.Exchange) string {
	switch id {
	case config.ExchangeCoinbase:
		return CoinbaseStreamURL
	case config.ExchangeKraken:
		return KrakenStreamURL
	default:
		return ""
	}
}
