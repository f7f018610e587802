package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const errorBuffer = 16

// channel wraps one backend connection with the open-state guard every send
// goes through.
type channel struct {
	name   string
	url    string
	dialer Dialer
	logger *logrus.Logger

	mu      sync.Mutex
	conn    Conn
	open    bool
	closing bool

	errs chan error

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func newChannel(name, url string, dialer Dialer, logger *logrus.Logger) *channel {
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &channel{
		name:   name,
		url:    url,
		dialer: dialer,
		logger: logger,
		errs:   make(chan error, errorBuffer),
	}
}

// connect dials and, if hello is non-nil, writes it before the channel is
// marked open, so no other send can precede it.
func (c *channel) connect(ctx context.Context, hello []byte) (Conn, error) {
	c.logger.WithFields(logrus.Fields{"channel": c.name, "url": c.url}).Info("Connecting")

	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		c.report("dial", err)
		return nil, &TransportError{Channel: c.name, Op: "dial", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		conn.Close()
		return nil, &TransportError{Channel: c.name, Op: "dial", Err: ErrNotOpen}
	}

	if hello != nil {
		if err := conn.WriteMessage(hello); err != nil {
			conn.Close()
			c.report("write", err)
			return nil, &TransportError{Channel: c.name, Op: "write", Err: err}
		}
		c.sent.Add(1)
	}

	c.conn = conn
	c.open = true
	c.logger.WithField("channel", c.name).Info("Channel open")
	return conn, nil
}

// send writes one frame if the channel is open. Closed-channel sends are
// dropped, never queued.
func (c *channel) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		c.dropped.Add(1)
		return ErrNotOpen
	}
	if err := c.conn.WriteMessage(data); err != nil {
		c.report("write", err)
		return &TransportError{Channel: c.name, Op: "write", Err: err}
	}
	c.sent.Add(1)
	return nil
}

func (c *channel) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// readLoop hands every frame to handle until the connection ends.
func (c *channel) readLoop(conn Conn, handle func([]byte)) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.open = false
			closing := c.closing
			c.mu.Unlock()

			if closing || isClosure(err) {
				c.logger.WithField("channel", c.name).Info("Channel closed")
				return nil
			}
			c.report("read", err)
			return nil
		}
		handle(data)
	}
}

// close stops further sends and releases the connection.
func (c *channel) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closing = true
	c.open = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// report records a transport failure. It is logged and published for the
// status view; nothing is retried.
func (c *channel) report(op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	terr := &TransportError{Channel: c.name, Op: op, Err: err}
	c.logger.WithError(err).WithFields(logrus.Fields{
		"channel": c.name,
		"op":      op,
	}).Error("Transport error")

	select {
	case c.errs <- terr:
	default:
	}
}
