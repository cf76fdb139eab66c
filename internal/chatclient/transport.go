package chatclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"hackmate/backend/internal/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Send while the socket is down.
var ErrNotConnected = errors.New("relay not connected")

const writeWait = 10 * time.Second

// EventHandler receives what the transport reads. Session implements it.
type EventHandler interface {
	HandleEvent(ev models.RelayEvent)
	HandleStatus(ctx context.Context, status Status)
}

// WSTransport is a reconnecting relay connection.
type WSTransport struct {
	URL     string
	Header  http.Header
	Dialer  *websocket.Dialer
	Handler EventHandler

	// NewBackOff builds the reconnect schedule; nil means exponential.
	NewBackOff func() backoff.BackOff

	log *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// RelayURL builds the /ws URL for a server base URL such as http://localhost:8080.
func RelayURL(base, userID, name string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	q := url.Values{}
	q.Set("userId", userID)
	if name != "" {
		q.Set("name", name)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func NewWSTransport(rawURL string, h EventHandler, log *zap.Logger) *WSTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSTransport{URL: rawURL, Dialer: websocket.DefaultDialer, Handler: h, log: log}
}

// Run keeps the connection up until ctx is cancelled.
func (t *WSTransport) Run(ctx context.Context) error {
	for {
		t.Handler.HandleStatus(ctx, StatusConnecting)

		conn, err := t.dial(ctx)
		if err != nil {
			t.Handler.HandleStatus(ctx, StatusDisconnected)
			return err
		}

		t.mu.Lock()
		t.conn = conn
		t.mu.Unlock()

		t.Handler.HandleStatus(ctx, StatusConnected)
		err = t.readLoop(ctx, conn)

		t.mu.Lock()
		t.conn = nil
		t.mu.Unlock()
		_ = conn.Close()
		t.Handler.HandleStatus(ctx, StatusDisconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.log.Warn("relay connection lost", zap.Error(err))
	}
}

func (t *WSTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	var b backoff.BackOff = backoff.NewExponentialBackOff()
	if t.NewBackOff != nil {
		b = t.NewBackOff()
	}
	return backoff.Retry(ctx, func() (*websocket.Conn, error) {
		conn, resp, err := t.Dialer.DialContext(ctx, t.URL, t.Header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil && resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Bad identity or token: retrying will not help.
			return nil, backoff.Permanent(fmt.Errorf("relay rejected connection: %s", resp.Status))
		}
		return conn, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.log.Debug("relay dial failed", zap.Duration("retry_in", next), zap.Error(err))
		}),
	)
}

func (t *WSTransport) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var ev models.RelayEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		t.Handler.HandleEvent(ev)
	}
}

// Send writes one event. It fails with ErrNotConnected while reconnecting.
func (t *WSTransport) Send(ctx context.Context, ev models.RelayEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ErrNotConnected
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = t.conn.SetWriteDeadline(deadline)
	return t.conn.WriteJSON(ev)
}
