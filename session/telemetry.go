package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/samaelod/aileron/mavlink"
	"github.com/samaelod/aileron/types"
)

// FrameRecorder persists raw telemetry frames, e.g. to a pcap capture.
type FrameRecorder interface {
	WriteFrame(at time.Time, dir types.Direction, frame []byte)
}

type TelemetryConfig struct {
	URL      string
	Capacity int
	Dialer   Dialer
	Logger   *logrus.Logger
	Capture  FrameRecorder
}

type TelemetryStats struct {
	Received  uint64
	Malformed uint64
	Evicted   uint64
}

// Telemetry receives traced protocol frames and keeps one bounded log per
// direction.
type Telemetry struct {
	cfg    TelemetryConfig
	ch     *channel
	logger *logrus.Logger
	logs   [2]*BoundedLog
	now    func() time.Time

	updates chan struct{}

	received  atomic.Uint64
	malformed atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTelemetry(cfg TelemetryConfig) *Telemetry {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Telemetry{
		cfg:    cfg,
		ch:     newChannel("telemetry", cfg.URL, cfg.Dialer, cfg.Logger),
		logger: cfg.Logger,
		logs: [2]*BoundedLog{
			types.Inbound:  NewBoundedLog(cfg.Capacity),
			types.Outbound: NewBoundedLog(cfg.Capacity),
		},
		now:     time.Now,
		updates: make(chan struct{}, 1),
	}
}

// Connect dials the channel and starts the reader. Failures are reported on
// Errors and not retried.
func (t *Telemetry) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	conn, err := t.ch.connect(ctx, nil)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	go func() {
		defer close(done)
		_ = t.ch.readLoop(conn, t.handle)
	}()
	return nil
}

func (t *Telemetry) handle(data []byte) {
	ev, err := types.DecodeTelemetryEvent(data)
	if err != nil {
		t.malformed.Add(1)
		t.logger.WithError(err).WithFields(logrus.Fields{
			"channel": t.ch.name,
			"bytes":   len(data),
		}).Warn("Quarantined malformed message")
		return
	}
	t.received.Add(1)

	at := t.now()
	if t.cfg.Capture != nil && ev.Raw != "" {
		if raw, err := mavlink.ParseHex(ev.Raw); err == nil {
			t.cfg.Capture.WriteFrame(at, ev.Direction, raw)
		}
	}

	t.Log(ev.Direction).Push(newEntry(ev, at))

	select {
	case t.updates <- struct{}{}:
	default:
	}
}

func newEntry(ev types.TelemetryEvent, at time.Time) Entry {
	e := Entry{
		At:        at,
		Direction: ev.Direction,
		Type:      Sanitize(ev.Type),
	}
	if ev.Decoded != nil && *ev.Decoded != "" {
		e.Decoded = true
		e.Body = Sanitize(*ev.Decoded)
		return e
	}

	e.Body = Sanitize(ev.Raw)
	if f, err := mavlink.DecodeHex(ev.Raw); err == nil {
		e.Detail = mavlink.Describe(f)
	}
	return e
}

// Log returns the log for one direction. Anything but outbound is inbound.
func (t *Telemetry) Log(dir types.Direction) *BoundedLog {
	if dir == types.Outbound {
		return t.logs[types.Outbound]
	}
	return t.logs[types.Inbound]
}

// Updates is signalled, coalesced, whenever a log changed.
func (t *Telemetry) Updates() <-chan struct{} { return t.updates }

func (t *Telemetry) Errors() <-chan error { return t.ch.errs }

func (t *Telemetry) IsOpen() bool { return t.ch.isOpen() }

func (t *Telemetry) Stats() TelemetryStats {
	return TelemetryStats{
		Received:  t.received.Load(),
		Malformed: t.malformed.Load(),
		Evicted:   t.logs[types.Inbound].Evicted() + t.logs[types.Outbound].Evicted(),
	}
}

func (t *Telemetry) Close() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := t.ch.close()
	if done != nil {
		<-done
	}
	return err
}
