package joystick

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/samaelod/aileron/input"
	"github.com/samaelod/aileron/types"
)

const DefaultFrameRate = 60

// FrameClock delivers one tick per rendered frame.
type FrameClock interface {
	Frames() <-chan time.Time
	Stop()
}

type tickerClock struct {
	t *time.Ticker
}

// NewFrameClock returns a clock ticking at fps frames per second.
func NewFrameClock(fps int) FrameClock {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return tickerClock{t: time.NewTicker(time.Second / time.Duration(fps))}
}

func (c tickerClock) Frames() <-chan time.Time { return c.t.C }
func (c tickerClock) Stop()                    { c.t.Stop() }

// Sink receives every command the poller computes.
type Sink func(types.ControlCommand)

// Poller samples a device once per frame and forwards the normalized command.
// It runs until Stop is called or its context ends.
type Poller struct {
	dev    Device
	norm   input.Normalizer
	sink   Sink
	clock  FrameClock
	logger *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	frames atomic.Uint64
	sent   atomic.Uint64
}

type PollerConfig struct {
	Deadzone float64
	Clock    FrameClock
	Logger   *logrus.Logger
}

func NewPoller(dev Device, sink Sink, cfg PollerConfig) *Poller {
	if cfg.Deadzone <= 0 {
		cfg.Deadzone = input.DefaultDeadzone
	}
	if cfg.Clock == nil {
		cfg.Clock = NewFrameClock(DefaultFrameRate)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Poller{
		dev:    dev,
		norm:   input.Normalizer{Threshold: cfg.Deadzone},
		sink:   sink,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
}

// Start launches the sampling loop. Calling Start on a running poller is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	p.logger.WithField("device", p.dev.Name()).Info("Joystick polling started")
	go p.run(ctx, p.done)
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.clock.Stop()

	frames := p.clock.Frames()
	for {
		select {
		case <-ctx.Done():
			p.logger.WithFields(logrus.Fields{
				"frames": p.frames.Load(),
				"sent":   p.sent.Load(),
			}).Info("Joystick polling stopped")
			return
		case <-frames:
			p.frames.Add(1)
			p.sample()
		}
	}
}

// sample is one frame. A missing device makes the frame a no-op; the loop
// keeps running.
func (p *Poller) sample() {
	snap, ok := p.dev.Snapshot()
	if !ok {
		return
	}
	cmd := p.norm.FromAxes(snap.Axes)
	p.sent.Add(1)
	if p.sink != nil {
		p.sink(cmd)
	}
}

// Stop cancels the loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once the loop has exited. It is nil before Start.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Poller) Frames() uint64 { return p.frames.Load() }
func (p *Poller) Sent() uint64   { return p.sent.Load() }
