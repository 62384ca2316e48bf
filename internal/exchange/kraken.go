package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-trading-bot/config"

	"github.com/shopspring/decimal"
)

const krakenURL = "https://api.kraken.com"

// KrakenClient talks to the Kraken spot REST API.
type KrakenClient struct {
	rest       *restClient
	apiKey     string
	privateKey string
	baseURL    string
	now        func() time.Time
}

// NewKrakenClient creates a Kraken client from a connection spec. The spec's APISecret
// holds the base64 private key.
func NewKrakenClient(spec config.ExchangeConnectionSpec, opts ...Option) *KrakenClient {
	o := buildOptions(opts)
	c := &KrakenClient{
		rest:       newRESTClient("kraken", spec.RateLimit, o),
		apiKey:     spec.APIKey,
		privateKey: spec.APISecret,
		baseURL:    krakenURL,
		now:        time.Now,
	}
	if o.baseURL != "" {
		c.baseURL = strings.TrimRight(o.baseURL, "/")
	}
	return c
}

// krakenPair converts BASE-QUOTE into Kraken's altname, e.g. BTC-USD -> XBTUSD.
func krakenPair(pair string) string {
	parts := strings.SplitN(strings.ToUpper(pair), "-", 2)
	for i, p := range parts {
		if p == "BTC" {
			parts[i] = "XBT"
		}
	}
	return strings.Join(parts, "")
}

type krakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func decodeKraken(body []byte, out interface{}) error {
	var resp krakenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	if len(resp.Error) > 0 {
		return fmt.Errorf("kraken API error: %s", strings.Join(resp.Error, ", "))
	}
	return json.Unmarshal(resp.Result, out)
}

// FetchTicker fetches the last trade price from the public Ticker endpoint.
func (c *KrakenClient) FetchTicker(ctx context.Context, pair string) (Ticker, error) {
	params := url.Values{}
	params.Set("pair", krakenPair(pair))
	endpoint := fmt.Sprintf("%s/0/public/Ticker?%s", c.baseURL, params.Encode())

	body, err := c.rest.do(ctx, true, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return Ticker{}, fmt.Errorf("error fetching ticker: %w", err)
	}

	// result is keyed by Kraken's internal pair name, e.g. XXBTZUSD
	var result map[string]struct {
		Close []string `json:"c"`
	}
	if err := decodeKraken(body, &result); err != nil {
		return Ticker{}, fmt.Errorf("error parsing ticker: %w", err)
	}
	for _, v := range result {
		if len(v.Close) == 0 {
			break
		}
		price, err := decimal.NewFromString(v.Close[0])
		if err != nil {
			return Ticker{}, fmt.Errorf("error parsing ticker price %q: %w", v.Close[0], err)
		}
		return Ticker{Pair: pair, LastPrice: price, Time: c.now()}, nil
	}
	return Ticker{}, fmt.Errorf("no ticker data for %s", pair)
}

// FetchBalance fetches balances from the private Balance endpoint.
func (c *KrakenClient) FetchBalance(ctx context.Context) (Balance, error) {
	if c.apiKey == "" || c.privateKey == "" {
		return Balance{}, fmt.Errorf("kraken credentials not configured")
	}
	const path = "/0/private/Balance"

	body, err := c.rest.do(ctx, false, func(ctx context.Context) (*http.Request, error) {
		form := url.Values{}
		form.Set("nonce", strconv.FormatInt(c.now().UnixMilli(), 10))
		encoded := form.Encode()

		sig, err := c.sign(path, form.Get("nonce"), encoded)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("API-Key", c.apiKey)
		req.Header.Set("API-Sign", sig)
		return req, nil
	})
	if err != nil {
		return Balance{}, fmt.Errorf("error fetching balance: %w", err)
	}

	var raw map[string]string
	if err := decodeKraken(body, &raw); err != nil {
		return Balance{}, fmt.Errorf("error parsing balance: %w", err)
	}
	bal := Balance{Assets: make(map[string]decimal.Decimal, len(raw))}
	for asset, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			continue
		}
		bal.Assets[asset] = d
	}
	return bal, nil
}

// sign computes API-Sign: base64(HMAC-SHA512(base64-decoded key, path + SHA256(nonce + body))).
func (c *KrakenClient) sign(path, nonce, body string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("kraken private key is not base64: %w", err)
	}
	sum := sha256.Sum256([]byte(nonce + body))
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(sum[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Close releases idle connections.
func (c *KrakenClient) Close() error {
	c.rest.close()
	return nil
}
