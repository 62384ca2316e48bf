package exchange

import (
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-trading-bot/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

const (
	coinbaseExchangeURL = "https://api.exchange.coinbase.com"
	coinbaseAdvancedURL = "https://api.coinbase.com"

	coinbaseAccountsPath = "/api/v3/brokerage/accounts"
	cdpTokenLifetime     = 2 * time.Minute
)

// CoinbaseClient talks to Coinbase. Public market data comes from the Exchange API.
// Balances use the Exchange API when a passphrase is configured (legacy HMAC keys),
// otherwise the Advanced Trade API with a CDP key signed into a short-lived JWT.
type CoinbaseClient struct {
	rest        *restClient
	apiKey      string
	apiSecret   string
	passphrase  string
	exchangeURL string
	advancedURL string
	now         func() time.Time
}

// NewCoinbaseClient creates a Coinbase client from a connection spec.
func NewCoinbaseClient(spec config.ExchangeConnectionSpec, opts ...Option) *CoinbaseClient {
	o := buildOptions(opts)
	c := &CoinbaseClient{
		rest:        newRESTClient("coinbase", spec.RateLimit, o),
		apiKey:      spec.APIKey,
		apiSecret:   spec.APISecret,
		passphrase:  spec.Passphrase,
		exchangeURL: coinbaseExchangeURL,
		advancedURL: coinbaseAdvancedURL,
		now:         time.Now,
	}
	if o.baseURL != "" {
		c.exchangeURL = strings.TrimRight(o.baseURL, "/")
		c.advancedURL = c.exchangeURL
	}
	return c
}

type coinbaseTicker struct {
	Price string `json:"price"`
	Time  string `json:"time"`
}

// FetchTicker fetches the last trade for pair from the public products endpoint.
func (c *CoinbaseClient) FetchTicker(ctx context.Context, pair string) (Ticker, error) {
	endpoint := fmt.Sprintf("%s/products/%s/ticker", c.exchangeURL, url.PathEscape(strings.ToUpper(pair)))

	body, err := c.rest.do(ctx, true, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return Ticker{}, fmt.Errorf("error fetching ticker: %w", err)
	}

	var raw coinbaseTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return Ticker{}, fmt.Errorf("error parsing ticker: %w", err)
	}
	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return Ticker{}, fmt.Errorf("error parsing ticker price %q: %w", raw.Price, err)
	}

	t := Ticker{Pair: pair, LastPrice: price}
	if ts, err := time.Parse(time.RFC3339Nano, raw.Time); err == nil {
		t.Time = ts
	}
	return t, nil
}

// FetchBalance fetches account balances with the configured credentials.
func (c *CoinbaseClient) FetchBalance(ctx context.Context) (Balance, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return Balance{}, fmt.Errorf("coinbase credentials not configured")
	}
	if c.passphrase != "" {
		return c.exchangeBalance(ctx)
	}
	return c.advancedBalance(ctx)
}

type coinbaseAccount struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

func (c *CoinbaseClient) exchangeBalance(ctx context.Context) (Balance, error) {
	const path = "/accounts"
	body, err := c.rest.do(ctx, false, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.exchangeURL+path, nil)
		if err != nil {
			return nil, err
		}
		ts := strconv.FormatInt(c.now().Unix(), 10)
		sig, err := c.signExchange(ts, http.MethodGet, path, "")
		if err != nil {
			return nil, err
		}
		req.Header.Set("CB-ACCESS-KEY", c.apiKey)
		req.Header.Set("CB-ACCESS-SIGN", sig)
		req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
		req.Header.Set("CB-ACCESS-PASSPHRASE", c.passphrase)
		return req, nil
	})
	if err != nil {
		return Balance{}, fmt.Errorf("error fetching balance: %w", err)
	}

	var accounts []coinbaseAccount
	if err := json.Unmarshal(body, &accounts); err != nil {
		return Balance{}, fmt.Errorf("error parsing balance: %w", err)
	}
	bal := Balance{Assets: make(map[string]decimal.Decimal, len(accounts))}
	for _, a := range accounts {
		v, err := decimal.NewFromString(a.Balance)
		if err != nil {
			continue
		}
		bal.Assets[a.Currency] = bal.Assets[a.Currency].Add(v)
	}
	return bal, nil
}

// signExchange computes CB-ACCESS-SIGN: base64(HMAC-SHA256(base64-decoded secret, prehash)).
func (c *CoinbaseClient) signExchange(timestamp, method, path, body string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(c.apiSecret)
	if err != nil {
		return "", fmt.Errorf("coinbase API secret is not base64: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

type advancedAccounts struct {
	Accounts []struct {
		Currency         string `json:"currency"`
		AvailableBalance struct {
			Value string `json:"value"`
		} `json:"available_balance"`
		Hold struct {
			Value string `json:"value"`
		} `json:"hold"`
	} `json:"accounts"`
}

func (c *CoinbaseClient) advancedBalance(ctx context.Context) (Balance, error) {
	endpoint := c.advancedURL + coinbaseAccountsPath
	u, err := url.Parse(endpoint)
	if err != nil {
		return Balance{}, err
	}

	body, err := c.rest.do(ctx, false, func(ctx context.Context) (*http.Request, error) {
		token, err := c.cdpToken(http.MethodGet, u.Host, u.Path)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return Balance{}, fmt.Errorf("error fetching balance: %w", err)
	}

	var raw advancedAccounts
	if err := json.Unmarshal(body, &raw); err != nil {
		return Balance{}, fmt.Errorf("error parsing balance: %w", err)
	}
	bal := Balance{Assets: make(map[string]decimal.Decimal, len(raw.Accounts))}
	for _, a := range raw.Accounts {
		avail, err := decimal.NewFromString(a.AvailableBalance.Value)
		if err != nil {
			continue
		}
		hold, _ := decimal.NewFromString(a.Hold.Value)
		bal.Assets[a.Currency] = bal.Assets[a.Currency].Add(avail).Add(hold)
	}
	return bal, nil
}

type cdpClaims struct {
	URI string `json:"uri"`
	jwt.RegisteredClaims
}

// cdpToken signs a request-scoped JWT for a CDP API key. The secret is either a PEM EC
// private key (ES256) or a base64 Ed25519 key (EdDSA).
func (c *CoinbaseClient) cdpToken(method, host, path string) (string, error) {
	now := c.now()
	claims := cdpClaims{
		URI: fmt.Sprintf("%s %s%s", method, host, path),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.apiKey,
			Issuer:    "cdp",
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cdpTokenLifetime)),
		},
	}

	alg, key, err := c.cdpSigningKey()
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(signingMethod(alg), claims)
	token.Header["kid"] = c.apiKey
	token.Header["nonce"] = nonce()

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *CoinbaseClient) cdpSigningKey() (string, interface{}, error) {
	// secrets copied from JSON key files often carry literal \n sequences
	secret := strings.ReplaceAll(c.apiSecret, `\n`, "\n")
	if strings.Contains(secret, "-----BEGIN") {
		key, err := jwt.ParseECPrivateKeyFromPEM([]byte(secret))
		if err != nil {
			return "", nil, fmt.Errorf("invalid coinbase EC private key: %w", err)
		}
		return "ES256", key, nil
	}
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil || (len(raw) != ed25519.PrivateKeySize && len(raw) != ed25519.SeedSize) {
		return "", nil, fmt.Errorf("coinbase API secret is neither a PEM EC key nor a base64 Ed25519 key")
	}
	if len(raw) == ed25519.SeedSize {
		return "EdDSA", ed25519.NewKeyFromSeed(raw), nil
	}
	return "EdDSA", ed25519.PrivateKey(raw), nil
}

func signingMethod(name string) jwt.SigningMethod {
	if name == "EdDSA" {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodES256
}

func nonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Close releases idle connections.
func (c *CoinbaseClient) Close() error {
	c.rest.close()
	return nil
}
