package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var _ output.Dispatcher = (*Client)(nil)

var errConnectionClosed = errors.New("connection closed")

// Client dispatches actions to a remote Server. The connection is dialled
// lazily and re-dialled after a failure.
type Client struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
	logger  output.LoggerPort

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan Response
	closed  bool
	readers sync.WaitGroup
	writeMu sync.Mutex
}

func NewClient(url string, timeout time.Duration, logger output.LoggerPort) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:     url,
		timeout: timeout,
		dialer:  websocket.DefaultDialer,
		logger:  logger,
		pending: make(map[string]chan Response),
	}
}

func (c *Client) Dispatch(ctx context.Context, action entity.Action) entity.ActionResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := gonanoid.New()
	if err != nil {
		return entity.Failure(&entity.TransportError{Op: "dispatch", Err: err})
	}

	conn, replies, err := c.register(ctx, id)
	if err != nil {
		return entity.Failure(&entity.TransportError{Op: "connect", Err: err})
	}
	defer c.unregister(id)

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(NewExecuteAction(id, action))
	c.writeMu.Unlock()
	if err != nil {
		c.drop(conn, err)
		return entity.Failure(&entity.TransportError{Op: "send", Err: err})
	}

	select {
	case resp, ok := <-replies:
		if !ok {
			return entity.Failure(&entity.TransportError{Op: "receive", Err: errConnectionClosed})
		}
		return resp.Result()
	case <-ctx.Done():
		c.logger.Warn("Dispatch abandoned", "action", action.ID, "request", id, "error", ctx.Err())
		return entity.Failure(transportErr(ctx.Err()))
	}
}

func (c *Client) register(ctx context.Context, id string) (*websocket.Conn, chan Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, errConnectionClosed
	}

	if c.conn == nil {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", c.url, err)
		}
		c.conn = conn
		c.readers.Add(1)
		go c.readLoop(conn)
		c.logger.Info("Dispatch connection established", "url", c.url)
	}

	ch := make(chan Response, 1)
	c.pending[id] = ch
	return c.conn, ch, nil
}

func (c *Client) unregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.readers.Done()

	for {
		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			c.drop(conn, err)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Warn("Dropping uncorrelated response", "id", resp.ID)
			continue
		}
		ch <- resp
	}
}

// drop forgets conn and fails every request waiting on it.
func (c *Client) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return
	}
	if !c.closed {
		c.logger.Warn("Dispatch connection lost", "error", cause)
	}
	_ = conn.Close()
	c.conn = nil
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Close shuts the connection and waits for the reader to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.drop(conn, errConnectionClosed)
	}
	c.readers.Wait()
	return nil
}
