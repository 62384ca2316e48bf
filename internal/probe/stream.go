package probe

import (
	"context"
	"fmt"
	"time"

	"crypto-trading-bot/internal/check"
	apperrors "crypto-trading-bot/internal/errors"

	"github.com/gorilla/websocket"
)

// ProbeStream opens a websocket to url and waits for a pong or any server message.
// The connection is closed before returning.
func (p *Prober) ProbeStream(ctx context.Context, name, url string, timeout time.Duration) check.Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, resp, err := p.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return failure(ctx, name, "websocket dial", err, timeout, start).Timed(start)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	pong := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})
	if err := conn.WriteControl(websocket.PingMessage, []byte("preflight"), deadline); err != nil {
		return check.Fail(name, apperrors.New(apperrors.KindProbeFailure, "websocket ping", err).Error()).Timed(start)
	}

	// control frames are only processed while reading
	_ = conn.SetReadDeadline(deadline)
	readErr := make(chan error, 1)
	go func() {
		_, _, err := conn.ReadMessage()
		readErr <- err
	}()

	select {
	case <-pong:
	case err := <-readErr:
		if err != nil {
			return failure(ctx, name, "websocket read", err, timeout, start).Timed(start)
		}
	case <-ctx.Done():
		return failure(ctx, name, "websocket read", ctx.Err(), timeout, start).Timed(start)
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return check.Pass(name, fmt.Sprintf("websocket ok in %s", time.Since(start).Round(time.Millisecond))).Timed(start)
}
