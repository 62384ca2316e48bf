package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"crypto-trading-bot/config"
	"crypto-trading-bot/internal/check"
	"crypto-trading-bot/internal/exchange"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spec(id config.Exchange) config.ExchangeConnectionSpec {
	return config.ExchangeConnectionSpec{ExchangeID: id, APIKey: "key", APISecret: "secret", RateLimit: time.Millisecond}
}

func mockFactory(m *exchange.MockClient) exchange.Factory {
	return func(config.ExchangeConnectionSpec) (exchange.Client, error) { return m, nil }
}

func TestProbeExchange_PaperOnlyPublic(t *testing.T) {
	m := exchange.NewMockClient()
	p := New(mockFactory(m))

	res := p.ProbeExchange(context.Background(), spec(config.ExchangeCoinbase), config.ModePaper, time.Second)
	assert.Equal(t, check.StatusPass, res.Status, res.Detail)
	assert.Equal(t, "coinbase", res.Name)
	assert.Equal(t, []string{"BTC-USD"}, m.TickerCalls())
	assert.Zero(t, m.BalanceCalls())
	assert.Equal(t, 1, m.Closed())
}

func TestProbeExchange_LiveUsesPrivateEndpoint(t *testing.T) {
	m := exchange.NewMockClient()
	p := New(mockFactory(m))

	res := p.ProbeExchange(context.Background(), spec(config.ExchangeKraken), config.ModeLive, time.Second)
	assert.True(t, res.Passed(), res.Detail)
	assert.Equal(t, 1, m.BalanceCalls())
	assert.Contains(t, res.Detail, "private API ok")
	assert.NotContains(t, res.Detail, "1000")
}

func TestProbeExchange_SkipsWithoutCredentials(t *testing.T) {
	m := exchange.NewMockClient()
	p := New(mockFactory(m))

	s := spec(config.ExchangeKraken)
	s.APISecret = ""
	res := p.ProbeExchange(context.Background(), s, config.ModeLive, time.Second)
	assert.Equal(t, check.StatusSkip, res.Status)
	assert.True(t, res.Passed())
	assert.Empty(t, m.TickerCalls())
	assert.Zero(t, m.Closed())
}

func TestProbeExchange_TimeoutReleasesClient(t *testing.T) {
	m := exchange.NewMockClient()
	m.Delay = time.Minute
	p := New(mockFactory(m))

	start := time.Now()
	res := p.ProbeExchange(context.Background(), spec(config.ExchangeCoinbase), config.ModePaper, 50*time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, check.StatusFail, res.Status)
	assert.Equal(t, "timeout after 50ms", res.Detail)
	assert.Equal(t, 1, m.Closed())
}

func TestProbeExchange_PublicFailureStopsBeforePrivate(t *testing.T) {
	m := exchange.NewMockClient()
	m.TickerErr = errors.New("503 service unavailable")
	p := New(mockFactory(m))

	res := p.ProbeExchange(context.Background(), spec(config.ExchangeCoinbase), config.ModeLive, time.Second)
	require.False(t, res.Passed())
	assert.Equal(t, "PROBE_FAILURE: fetch ticker: 503 service unavailable", res.Detail)
	assert.Zero(t, m.BalanceCalls())
	assert.Equal(t, 1, m.Closed())
}

func TestProbeExchange_FactoryError(t *testing.T) {
	p := New(func(config.ExchangeConnectionSpec) (exchange.Client, error) {
		return nil, errors.New("no client")
	})
	res := p.ProbeExchange(context.Background(), spec(config.ExchangeCoinbase), config.ModePaper, time.Second)
	assert.False(t, res.Passed())
	assert.Contains(t, res.Detail, "no client")
}

func TestProbeExchange_CallerDeadline(t *testing.T) {
	m := exchange.NewMockClient()
	m.Delay = time.Minute
	p := New(mockFactory(m))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	res := p.ProbeExchange(ctx, spec(config.ExchangeCoinbase), config.ModePaper, time.Minute)
	require.False(t, res.Passed())
	assert.True(t, strings.HasPrefix(res.Detail, "timeout after "), res.Detail)
	assert.Equal(t, 1, m.Closed())
}

func TestProbeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/down":
			w.WriteHeader(http.StatusBadGateway)
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}
	}))
	defer srv.Close()

	p := New(nil)
	ctx := context.Background()

	assert.Equal(t, check.StatusPass, p.ProbeURL(ctx, "ok", srv.URL+"/", time.Second).Status)
	assert.Equal(t, check.StatusPass, p.ProbeURL(ctx, "404", srv.URL+"/missing", time.Second).Status)

	down := p.ProbeURL(ctx, "down", srv.URL+"/down", time.Second)
	assert.Equal(t, check.StatusFail, down.Status)
	assert.Contains(t, down.Detail, "HTTP 502")

	slow := p.ProbeURL(ctx, "slow", srv.URL+"/slow", 50*time.Millisecond)
	require.Equal(t, check.StatusFail, slow.Status)
	assert.Equal(t, "timeout after 50ms", slow.Detail)

	bad := p.ProbeURL(ctx, "bad", "://nope", time.Second)
	assert.Equal(t, check.StatusFail, bad.Status)
}

func TestProbeStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// default ping handler answers with a pong while reading
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	p := New(nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	res := p.ProbeStream(context.Background(), "coinbase_stream", url, 2*time.Second)
	require.Equal(t, check.StatusPass, res.Status, res.Detail)

	refused := p.ProbeStream(context.Background(), "nowhere", "ws://127.0.0.1:1", time.Second)
	assert.Equal(t, check.StatusFail, refused.Status)
}

// trackingTransport counts the clients built for URL checks and their release.
type trackingTransport struct {
	http.RoundTripper
	released *atomic.Int32
}

func (t trackingTransport) CloseIdleConnections() { t.released.Add(1) }

func TestProbeURL_ReleasesClientPerCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			<-r.Context().Done()
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var built, released atomic.Int32
	p := New(nil, WithHTTPClientFactory(func(timeout time.Duration) *http.Client {
		built.Add(1)
		c := NewHTTPClient(timeout)
		c.Transport = trackingTransport{RoundTripper: c.Transport, released: &released}
		return c
	}))

	ctx := context.Background()
	assert.Equal(t, check.StatusFail, p.ProbeURL(ctx, "down", srv.URL+"/", time.Second).Status)
	assert.Equal(t, "timeout after 50ms", p.ProbeURL(ctx, "slow", srv.URL+"/slow", 50*time.Millisecond).Detail)
	assert.Equal(t, check.StatusFail, p.ProbeURL(ctx, "refused", "http://127.0.0.1:1/", time.Second).Status)

	assert.Equal(t, int32(3), built.Load())
	assert.Equal(t, int32(3), released.Load())
}

func silentStream(t *testing.T) (string, func()) {
	t.Helper()
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// never reads, so pings go unanswered
		<-release
	}))
	return "ws" + strings.TrimPrefix(srv.URL, "http"), func() {
		close(release)
		srv.Close()
	}
}

func TestProbeStream_CallerDeadline(t *testing.T) {
	url, stop := silentStream(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res := New(nil).ProbeStream(ctx, "stream", url, time.Minute)
	require.Equal(t, check.StatusFail, res.Status)
	assert.True(t, strings.HasPrefix(res.Detail, "timeout after "), res.Detail)
	assert.NotEqual(t, "timeout after 1m0s", res.Detail)
}

func TestProbeStream_CancelIsNotTimeout(t *testing.T) {
	url, stop := silentStream(t)
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	res := New(nil).ProbeStream(ctx, "stream", url, time.Minute)
	require.Equal(t, check.StatusFail, res.Status)
	assert.Equal(t, "PROBE_FAILURE: websocket read: context canceled", res.Detail)
}
