package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is a WebSocket client for request/response APIs. Calls are
// serialized; each call writes one message and reads until a reply matches.
type Client struct {
	url           string
	conn          *websocket.Conn
	connMu        sync.Mutex
	reconnectWait time.Duration
	maxRetries    int
	readWait      time.Duration
	writeWait     time.Duration
	logger        zerolog.Logger
	headers       http.Header // Custom headers for WebSocket handshake
	closed        bool
}

// Config holds WebSocket client configuration
type Config struct {
	URL           string
	ReconnectWait time.Duration
	MaxRetries    int
	ReadWait      time.Duration
	WriteWait     time.Duration
	Logger        zerolog.Logger
	Headers       http.Header
}

// NewClient creates a new WebSocket client
func NewClient(cfg Config) *Client {
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.ReadWait == 0 {
		cfg.ReadWait = 10 * time.Second
	}
	if cfg.WriteWait == 0 {
		cfg.WriteWait = 10 * time.Second
	}

	return &Client{
		url:           cfg.URL,
		reconnectWait: cfg.ReconnectWait,
		maxRetries:    cfg.MaxRetries,
		readWait:      cfg.ReadWait,
		writeWait:     cfg.WriteWait,
		logger:        cfg.Logger,
		headers:       cfg.Headers,
	}
}

// Connect establishes the WebSocket connection
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return nil
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, resp, err := dialer.DialContext(ctx, c.url, c.headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}
	c.conn = conn

	c.logger.Info().Str("url", c.url).Msg("WebSocket connected")
	return nil
}

// ConnectWithRetry connects with bounded retries and exponential backoff
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	wait := c.reconnectWait
	retries := 0
	for {
		err := c.connectLocked(ctx)
		if err == nil || err == ErrClosed {
			return err
		}

		retries++
		if retries >= c.maxRetries {
			return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
		}

		c.logger.Warn().
			Err(err).
			Int("retry", retries).
			Dur("wait", wait).
			Msg("WebSocket connection failed, retrying...")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			wait *= 2
			if wait > 30*time.Second {
				wait = 30 * time.Second
			}
		}
	}
}

// Call writes req as JSON and returns the first message accepted by match.
// Messages rejected by match are skipped. On any transport error the
// connection is dropped so the next Connect starts clean.
func (c *Client) Call(ctx context.Context, req interface{}, match func([]byte) bool) ([]byte, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A blocked read only returns once the socket is closed
	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer func() {
		if !stop() {
			c.dropLocked()
		}
	}()

	writeDeadline := c.deadline(ctx, c.writeWait)
	_ = conn.SetWriteDeadline(writeDeadline)
	if err := conn.WriteJSON(req); err != nil {
		c.dropLocked()
		return nil, c.callError(ctx, "write request", err)
	}

	_ = conn.SetReadDeadline(c.deadline(ctx, c.readWait))
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.dropLocked()
			return nil, c.callError(ctx, "read response", err)
		}
		if match == nil || match(message) {
			return message, nil
		}
		c.logger.Debug().Int("bytes", len(message)).Msg("Skipping unrelated WebSocket message")
	}
}

// callError reports cancellation ahead of the transport error it caused
func (c *Client) callError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", op, ctxErr, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// deadline picks the earlier of now+wait and the context deadline
func (c *Client) deadline(ctx context.Context, wait time.Duration) time.Time {
	d := time.Now().Add(wait)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

// Close closes the WebSocket connection. Safe to call twice.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn != nil {
		err := c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeWait),
		)
		c.conn.Close()
		c.conn = nil
		return err
	}

	return nil
}
