// Package terminal implements the market-data terminal contract over the
// WebSocket bridge the terminal host exposes. Requests are JSON frames
// answered in order on the same socket.
package terminal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GoldPulse/internal/domain/models"
	drepo "GoldPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements repository.Terminal against the bridge endpoint.
type Client struct {
	url            string
	requestTimeout time.Duration

	mu   sync.Mutex // serializes request/response pairs on the socket
	conn *websocket.Conn
}

// New creates a terminal bridge client.
func New(url string, requestTimeout time.Duration) drepo.Terminal {
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	return &Client{url: url, requestTimeout: requestTimeout}
}

type request struct {
	Op     string `json:"op"`
	Symbol string `json:"symbol,omitempty"`
}

type response struct {
	Op      string   `json:"op"`
	OK      bool     `json:"ok"`
	Error   string   `json:"error,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
	Quote   *struct {
		Bid  float64 `json:"bid"`
		Ask  float64 `json:"ask"`
		Last float64 `json:"last"`
		Time int64   `json:"time"` // unix seconds, terminal server clock
	} `json:"quote,omitempty"`
}

// Connect dials the bridge, replacing any previous socket.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("terminal connect: %w", err)
	}
	c.conn = conn
	return nil
}

// roundTrip sends one request and reads one response under the lock.
func (c *Client) roundTrip(req request) (*response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("terminal not connected")
	}
	deadline := time.Now().Add(c.requestTimeout)
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("terminal write %s: %w", req.Op, err)
	}
	_ = c.conn.SetReadDeadline(deadline)
	var resp response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("terminal read %s: %w", req.Op, err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("terminal %s: %s", req.Op, resp.Error)
	}
	return &resp, nil
}

// Ping is the lightweight health probe. A bridge that answers but reports
// not-OK counts as disconnected; terminals fail silently under load.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.roundTrip(request{Op: "ping"})
	return err
}

// Symbols enumerates instruments available on the terminal.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	resp, err := c.roundTrip(request{Op: "symbols"})
	if err != nil {
		return nil, err
	}
	return resp.Symbols, nil
}

// Quote fetches the current quote for symbol. A nil quote with no error is
// normalized to an error so callers never have to nil-check twice.
func (c *Client) Quote(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	resp, err := c.roundTrip(request{Op: "quote", Symbol: symbol})
	if err != nil {
		return nil, err
	}
	if resp.Quote == nil {
		return nil, fmt.Errorf("terminal quote %s: empty response", symbol)
	}
	return &models.PriceQuote{
		Symbol: symbol,
		Bid:    resp.Quote.Bid,
		Ask:    resp.Quote.Ask,
		Last:   resp.Quote.Last,
		Time:   time.Unix(resp.Quote.Time, 0),
	}, nil
}

// Disconnect closes the socket. Safe to call repeatedly.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
