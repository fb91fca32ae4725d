package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tickrouter/pkg/backoff"
)

// Client handles the WebSocket connection to the push provider and message
// routing. Reconnects use the shared backoff policy and are reported through
// the state handler so routing can react to connectivity, not to read errors.
type Client struct {
	url     string
	apiKey  string
	topics  []string
	handler func([]byte)
	onState func(connected bool)
	policy  backoff.Policy
	logger  *zap.Logger

	// mu guards conn; the reconnect loop replaces it while Close may run.
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(url, apiKey string, policy backoff.Policy, logger *zap.Logger) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		policy: policy,
		logger: logger,
	}
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *Client) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// SetStateHandler sets the function notified on connectivity transitions.
func (c *Client) SetStateHandler(h func(connected bool)) {
	c.onState = h
}

// Connect establishes the WebSocket connection, authenticates, and subscribes
// to the given topics. It does not start the listener. A failure here is a
// startup failure, not a transient one.
func (c *Client) Connect(topics []string) error {
	c.topics = topics
	if err := c.dialAndSubscribe(); err != nil {
		return err
	}
	c.setState(true)
	return nil
}

func (c *Client) dialAndSubscribe() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	if c.apiKey != "" {
		auth := map[string]interface{}{
			"op":   "auth",
			"args": []string{c.apiKey},
		}
		if err := conn.WriteJSON(auth); err != nil {
			conn.Close()
			return fmt.Errorf("websocket auth failed: %w", err)
		}
	}

	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": c.topics,
	}
	if err := conn.WriteJSON(subMsg); err != nil {
		conn.Close()
		return fmt.Errorf("websocket subscribe failed: %w", err)
	}

	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	c.logger.Info("stream connected", zap.String("url", c.url), zap.Int("topics", len(c.topics)))
	return nil
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Listen reads messages until the context is canceled. On a read error it
// marks the source disconnected and retries the connection with exponential
// backoff, resubscribing to the stored topics once the dial succeeds.
func (c *Client) Listen(ctx context.Context) {
	for {
		conn := c.current()
		if conn == nil {
			return // closed before or during reconnect
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}

			c.logger.Error("stream read error", zap.Error(err))
			c.setState(false)

			for attempt := 0; ; attempt++ {
				if err := c.policy.Wait(ctx, attempt); err != nil {
					return
				}
				if err := c.dialAndSubscribe(); err != nil {
					c.logger.Warn("stream reconnect failed",
						zap.Int("attempt", attempt+1), zap.Error(err))
					continue
				}
				c.setState(true)
				break
			}
			continue // resume reading on the new connection
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// Close tears down the connection. The listener exits via context cancel.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) setState(connected bool) {
	if c.onState != nil {
		c.onState(connected)
	}
}
