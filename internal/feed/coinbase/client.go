package coinbase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"depthboard/internal/feed"
)

// DefaultFeedURL is the public Coinbase Exchange websocket feed.
const DefaultFeedURL = "wss://ws-feed.exchange.coinbase.com"

// Client implements feed.Source against the Coinbase Exchange websocket feed.
// It subscribes to the level2_batch and matches channels for a fixed product
// set and decodes snapshot/l2update/match messages into typed events, with
// reconnect & resubscribe on any transport failure.
type Client struct {
	url      string
	products []string
	log      *slog.Logger

	mu        sync.RWMutex
	connected bool
	wsConn    *websocket.Conn

	evCh  chan feed.Event
	errCh chan error

	ctx    context.Context
	cancel context.CancelFunc
}

func New(url string, products []string, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultFeedURL
	}
	return &Client{
		url:      url,
		products: products,
		log:      logger,
		evCh:     make(chan feed.Event, 1024),
		errCh:    make(chan error, 16),
	}
}

func (c *Client) Events() <-chan feed.Event { return c.evCh }
func (c *Client) Errors() <-chan error      { return c.errCh }

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	close(c.errCh)
	close(c.evCh)
}

func (c *Client) Run(ctx context.Context, onStatus func(connected bool)) {
	if c.cancel != nil {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	backoff := time.Second
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		ws, err := c.openWS()
		if err != nil {
			onStatus(false)
			c.setConnected(false)
			c.emitErr(fmt.Errorf("ws open: %w", err))
			time.Sleep(backoff)
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		c.wsConn = ws

		if err := c.subscribe(); err != nil {
			c.emitErr(fmt.Errorf("subscribe: %w", err))
			_ = ws.Close()
			continue
		}
		c.setConnected(true)
		onStatus(true)
		backoff = time.Second
		c.log.Info("subscribed",
			slog.String("url", c.url),
			slog.Int("products", len(c.products)),
		)

		if err := c.readLoop(); err != nil {
			onStatus(false)
			c.setConnected(false)
			c.emitErr(err)
			// loop will reconnect & resubscribe
		}
	}
}

func (c *Client) openWS() (*websocket.Conn, error) {
	d := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := d.DialContext(c.ctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

type subscribeMessage struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

func (c *Client) subscribe() error {
	return c.wsConn.WriteJSON(subscribeMessage{
		Type:       "subscribe",
		ProductIDs: c.products,
		Channels:   []string{"level2_batch", "matches"},
	})
}

func (c *Client) readLoop() error {
	defer func() {
		if c.wsConn != nil {
			_ = c.wsConn.Close()
		}
	}()

	c.wsConn.SetReadLimit(1 << 20)
	_ = c.wsConn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.wsConn.SetPongHandler(func(string) error {
		_ = c.wsConn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return nil
		default:
		}

		// Keepalive ping
		select {
		case <-ticker.C:
			_ = c.wsConn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		default:
		}

		_, data, err := c.wsConn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ws read: %w", err)
		}
		_ = c.wsConn.SetReadDeadline(time.Now().Add(60 * time.Second))

		ev, ok, err := parseMessage(data)
		if err != nil {
			c.emitErr(err)
			continue
		}
		if !ok {
			continue // ack/heartbeat/last_match
		}
		select {
		case c.evCh <- ev:
		case <-c.ctx.Done():
			return nil
		}
	}
}

func (c *Client) emitErr(err error) {
	select {
	case c.errCh <- err:
	default:
		// drop if buffer full
	}
}
