package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"terraingen/internal/dispatch"
)

var ErrBatchRejected = errors.New("network: batch rejected by editor")

// Client streams spawn batches to an editor over a websocket and blocks until
// each batch is acknowledged.
type Client struct {
	conn       *websocket.Conn
	logger     *log.Logger
	runID      string
	ackTimeout time.Duration
	seq        atomic.Uint64

	mu sync.Mutex
}

func Dial(ctx context.Context, url, runID string, ackTimeout time.Duration, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "network ", log.LstdFlags|log.Lmicroseconds)
	}
	if ackTimeout <= 0 {
		ackTimeout = 5 * time.Second
	}

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial editor: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c := &Client{conn: conn, logger: logger, runID: runID, ackTimeout: ackTimeout}
	if err := c.write(MessageHello, Hello{RunID: runID}, time.Now().Add(ackTimeout)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}
	return c, nil
}

// SendBatch writes the batch and waits for its acknowledgement. Acks for
// other sequence numbers are skipped.
func (c *Client) SendBatch(ctx context.Context, batch dispatch.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.ackTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := c.write(MessageSpawnBatch, NewSpawnBatch(c.runID, batch), deadline); err != nil {
		return fmt.Errorf("write batch %d: %w", batch.Seq, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("await ack for batch %d: %w", batch.Seq, err)
		}
		env, err := Decode(data)
		if err != nil {
			c.logger.Printf("decode editor message: %v", err)
			continue
		}
		if env.Type != MessageBatchAck {
			c.logger.Printf("ignoring %s while waiting for batch %d", env.Type, batch.Seq)
			continue
		}
		var ack BatchAck
		if err := json.Unmarshal(env.Payload, &ack); err != nil {
			return fmt.Errorf("decode ack: %w", err)
		}
		if ack.Seq != batch.Seq {
			c.logger.Printf("stale ack %d while waiting for batch %d", ack.Seq, batch.Seq)
			continue
		}
		if !ack.Accepted {
			return fmt.Errorf("%w: batch %d: %s", ErrBatchRejected, batch.Seq, ack.Message)
		}
		return nil
	}
}

func (c *Client) write(msgType MessageType, payload any, deadline time.Time) error {
	data, err := prepare(msgType, c.seq.Add(1), payload)
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(time.Second))
	return c.conn.Close()
}
