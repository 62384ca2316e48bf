package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const defaultHTTPTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Exchange   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Exchange, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// restClient is the transport shared by the exchange clients: paced by a token bucket
// derived from the connection spec and retrying transient public-endpoint failures.
type restClient struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
}

func newRESTClient(name string, interval time.Duration, o options) *restClient {
	httpClient := o.httpClient
	if httpClient == nil {
		// each client owns its transport so Close cannot affect siblings
		httpClient = &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &restClient{
		name:       name,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: o.maxRetries,
	}
}

// do sends the request built by newReq. When retry is set, network errors, 429 and 5xx
// responses are retried with exponential backoff; newReq is called once per attempt.
func (r *restClient) do(ctx context.Context, retry bool, newReq func(context.Context) (*http.Request, error)) ([]byte, error) {
	var body []byte
	op := func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := newReq(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		body, err = r.send(req)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	if !retry || r.maxRetries == 0 {
		err := op()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return body, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (r *restClient) send(req *http.Request) ([]byte, error) {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling %s: %w", r.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Exchange: r.name, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	return body, nil
}

func (r *restClient) close() {
	r.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
