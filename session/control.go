package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/samaelod/aileron/input"
	"github.com/samaelod/aileron/types"
)

const DefaultStatePeriod = 100 * time.Millisecond

// State of a control session.
type State int32

const (
	Configuring State = iota
	Connecting
	Active
)

func (s State) String() string {
	switch s {
	case Configuring:
		return "configuring"
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	}
	return "unknown"
}

// StateSink receives every decoded vehicle state on the reader goroutine.
type StateSink func(types.VehicleState)

type ControlConfig struct {
	URL         string
	StatePeriod time.Duration
	Dialer      Dialer
	Logger      *logrus.Logger
	Sink        StateSink
}

type ControlStats struct {
	Sent          uint64
	Dropped       uint64
	Received      uint64
	Malformed     uint64
	StateRequests uint64
}

// Control is the command and state session with the simulator. It owns the
// channel, the state poll timer and the latest-command cell.
type Control struct {
	cfg    ControlConfig
	ch     *channel
	logger *logrus.Logger
	latest *input.Latest

	state  atomic.Int32
	states chan types.VehicleState

	received      atomic.Uint64
	malformed     atomic.Uint64
	stateRequests atomic.Uint64

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

func NewControl(cfg ControlConfig) *Control {
	if cfg.StatePeriod <= 0 {
		cfg.StatePeriod = DefaultStatePeriod
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Control{
		cfg:    cfg,
		ch:     newChannel("control", cfg.URL, cfg.Dialer, cfg.Logger),
		logger: cfg.Logger,
		latest: input.NewLatest(types.Neutral(types.DefaultSessionConfig().Throttle)),
		states: make(chan types.VehicleState, 1),
	}
}

// Start leaves Configuring: it starts the state poll, dials the channel and
// sends init before anything else. A failed dial is reported and leaves the
// session in Connecting; it is not retried.
func (c *Control) Start(ctx context.Context, sc types.SessionConfig) error {
	hello, err := types.Encode(types.InitMessage{Config: sc})
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("control session already started")
	}
	c.started = true
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	c.cancel = cancel
	c.group = g
	c.mu.Unlock()

	c.latest.Store(types.Neutral(sc.Throttle))
	c.state.Store(int32(Connecting))

	g.Go(func() error {
		c.pollState(gctx)
		return nil
	})

	conn, err := c.ch.connect(gctx, hello)
	if err != nil {
		return err
	}
	c.state.Store(int32(Active))
	c.logger.WithFields(logrus.Fields{
		"altitude": sc.Altitude,
		"speed":    sc.Speed,
		"heading":  sc.Heading,
		"throttle": sc.Throttle,
		"engine":   sc.Engine,
	}).Info("Session active")

	g.Go(func() error {
		return c.ch.readLoop(conn, c.handle)
	})
	return nil
}

func (c *Control) pollState(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.StatePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.stateRequests.Add(1)
			c.send(types.StateMessage{})
		}
	}
}

// Arm asks the simulator to toggle arming. The armed flag is only ever
// learned from the next vehicle state.
func (c *Control) Arm() {
	c.send(types.ArmMessage{})
}

// SetCommand replaces the latest command and sends it.
func (c *Control) SetCommand(cmd types.ControlCommand) {
	c.latest.Store(cmd)
	c.sendLatest()
}

// Adjust moves one lever by delta and sends the resulting command.
func (c *Control) Adjust(ctrl input.Control, delta int) types.ControlCommand {
	cmd, _ := c.latest.Update(func(cur types.ControlCommand) types.ControlCommand {
		return input.Set(cur, ctrl, input.Get(cur, ctrl)+delta)
	})
	c.sendLatest()
	return cmd
}

// Command returns the current content of the latest-command cell.
func (c *Control) Command() types.ControlCommand {
	cmd, _ := c.latest.Load()
	return cmd
}

func (c *Control) sendLatest() {
	cmd, _ := c.latest.Load()
	c.send(types.ControlMessage{ControlCommand: cmd})
}

func (c *Control) send(msg types.OutboundMessage) {
	data, err := types.Encode(msg)
	if err != nil {
		c.logger.WithError(err).WithField("kind", msg.Kind()).Error("Encode failed")
		return
	}
	// Not-open and transport failures are already counted and reported.
	_ = c.ch.send(data)
}

func (c *Control) handle(data []byte) {
	st, err := types.DecodeVehicleState(data)
	if err != nil {
		c.malformed.Add(1)
		c.logger.WithError(err).WithFields(logrus.Fields{
			"channel": c.ch.name,
			"bytes":   len(data),
		}).Warn("Quarantined malformed message")
		return
	}
	c.received.Add(1)

	if c.cfg.Sink != nil {
		c.cfg.Sink(st)
	}

	// Coalesce: a slow reader only ever sees the newest state.
	select {
	case c.states <- st:
	default:
		select {
		case <-c.states:
		default:
		}
		select {
		case c.states <- st:
		default:
		}
	}
}

// States delivers the most recent vehicle state; older unread ones are
// replaced.
func (c *Control) States() <-chan types.VehicleState { return c.states }

// Errors delivers transport errors for display.
func (c *Control) Errors() <-chan error { return c.ch.errs }

func (c *Control) State() State { return State(c.state.Load()) }

func (c *Control) IsOpen() bool { return c.ch.isOpen() }

func (c *Control) Stats() ControlStats {
	return ControlStats{
		Sent:          c.ch.sent.Load(),
		Dropped:       c.ch.dropped.Load(),
		Received:      c.received.Load(),
		Malformed:     c.malformed.Load(),
		StateRequests: c.stateRequests.Load(),
	}
}

// Close stops the poll timer, closes the channel and waits for the session
// goroutines.
func (c *Control) Close() error {
	c.mu.Lock()
	cancel, g := c.cancel, c.group
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := c.ch.close()
	if g != nil {
		_ = g.Wait()
	}
	return err
}
