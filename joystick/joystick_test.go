package joystick

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samaelod/aileron/types"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeDevice struct {
	mu    sync.Mutex
	snap  Snapshot
	ok    bool
	reads int
}

func (f *fakeDevice) Name() string { return "Fake Stick" }

func (f *fakeDevice) Snapshot() (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.snap, f.ok
}

func (f *fakeDevice) Gone() <-chan struct{} { return nil }
func (f *fakeDevice) Close() error          { return nil }

func (f *fakeDevice) snapshots() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeDevice) set(axes []float64, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = Snapshot{Axes: axes}
	f.ok = ok
}

type manualClock struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualClock() *manualClock {
	return &manualClock{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (c *manualClock) Frames() <-chan time.Time { return c.ch }
func (c *manualClock) Stop()                    { c.once.Do(func() { close(c.stopped) }) }
func (c *manualClock) tick()                    { c.ch <- time.Now() }

type recorder struct {
	mu   sync.Mutex
	cmds []types.ControlCommand
}

func (r *recorder) sink(cmd types.ControlCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *recorder) all() []types.ControlCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ControlCommand(nil), r.cmds...)
}

func TestPollerEmitsNormalizedCommandEachFrame(t *testing.T) {
	dev := &fakeDevice{}
	dev.set([]float64{0, -0.2, 0.5, 0}, true)
	clock := newManualClock()
	rec := &recorder{}

	p := NewPoller(dev, rec.sink, PollerConfig{Clock: clock, Logger: quietLogger()})
	p.Start(context.Background())
	defer p.Stop()

	clock.tick()
	clock.tick()

	require.Eventually(t, func() bool { return len(rec.all()) == 2 }, time.Second, time.Millisecond)
	want := types.ControlCommand{Roll: 75, Pitch: 50, Yaw: 50, Throttle: 60}
	assert.Equal(t, []types.ControlCommand{want, want}, rec.all())
}

func TestPollerKeepsRunningWithoutDevice(t *testing.T) {
	dev := &fakeDevice{}
	clock := newManualClock()
	rec := &recorder{}

	p := NewPoller(dev, rec.sink, PollerConfig{Clock: clock, Logger: quietLogger()})
	p.Start(context.Background())
	defer p.Stop()

	clock.tick()
	clock.tick()
	// tick returns once the loop has the frame, not once it has sampled.
	require.Eventually(t, func() bool { return dev.snapshots() == 2 }, time.Second, time.Millisecond)
	assert.Empty(t, rec.all())
	assert.Equal(t, uint64(2), p.Frames())

	dev.set([]float64{1, 0, 0, 0}, true)
	clock.tick()

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 100, rec.all()[0].Yaw)
	assert.Equal(t, uint64(3), p.Frames())
	assert.Equal(t, uint64(1), p.Sent())
}

func TestPollerStop(t *testing.T) {
	dev := &fakeDevice{}
	clock := newManualClock()

	p := NewPoller(dev, nil, PollerConfig{Clock: clock, Logger: quietLogger()})
	assert.Nil(t, p.Done())

	p.Start(context.Background())
	p.Start(context.Background())
	p.Stop()

	select {
	case <-p.Done():
	default:
		t.Fatal("poller loop still running after Stop")
	}
	select {
	case <-clock.stopped:
	default:
		t.Fatal("frame clock not stopped")
	}

	// A second Stop must not block.
	p.Stop()
}

func TestPollerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(&fakeDevice{}, nil, PollerConfig{Clock: newManualClock(), Logger: quietLogger()})
	p.Start(ctx)
	cancel()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller ignored context cancellation")
	}
}

func writeEvent(t *testing.T, w io.Writer, typ uint8, number uint8, value int16) {
	t.Helper()
	require.NoError(t, binary.Write(w, binary.LittleEndian, jsEvent{Value: value, Type: typ, Number: number}))
}

func TestLinuxDeviceFoldsEvents(t *testing.T) {
	pr, pw := io.Pipe()
	dev := newLinuxDevice("js-test", "Test Pad", pr, quietLogger())

	writeEvent(t, pw, eventAxis|eventInit, 0, 0)
	writeEvent(t, pw, eventAxis|eventInit, 3, 0)
	writeEvent(t, pw, eventAxis, 2, 16384)
	writeEvent(t, pw, eventAxis, 1, -32767)
	writeEvent(t, pw, eventAxis, 0, -32768)
	writeEvent(t, pw, eventButton, 4, 1)

	require.Eventually(t, func() bool {
		snap, ok := dev.Snapshot()
		return ok && snap.Buttons != 0
	}, time.Second, time.Millisecond)

	snap, ok := dev.Snapshot()
	require.True(t, ok)
	require.Len(t, snap.Axes, 4)
	assert.Equal(t, -1.0, snap.Axes[0])
	assert.Equal(t, -1.0, snap.Axes[1])
	assert.InDelta(t, 0.5, snap.Axes[2], 0.001)
	assert.Equal(t, 0.0, snap.Axes[3])
	assert.Equal(t, uint32(1<<4), snap.Buttons)
	assert.Equal(t, "Test Pad", dev.Name())

	writeEvent(t, pw, eventButton, 4, 0)
	require.Eventually(t, func() bool {
		snap, _ := dev.Snapshot()
		return snap.Buttons == 0
	}, time.Second, time.Millisecond)

	select {
	case <-dev.Gone():
		t.Fatal("device reported gone while still plugged in")
	default:
	}

	// Unplugging makes the device report absent.
	require.NoError(t, pw.Close())
	select {
	case <-dev.Gone():
	case <-time.After(time.Second):
		t.Fatal("device not reported gone after unplug")
	}
	_, ok = dev.Snapshot()
	assert.False(t, ok)
}

func TestDiscoverPicksFirstDevice(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"js10", "js2", "event0", "jsX"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0600))
	}

	var opened string
	d := Discoverer{
		Dir:      dir,
		Interval: time.Millisecond,
		Logger:   quietLogger(),
		Open: func(path string, _ *logrus.Logger) (Device, error) {
			opened = path
			return &fakeDevice{}, nil
		},
	}

	dev, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.NotNil(t, dev)
	assert.Equal(t, filepath.Join(dir, "js2"), opened)
}

func TestDiscoverWaitsForDevice(t *testing.T) {
	dir := t.TempDir()

	d := Discoverer{
		Dir:      dir,
		Interval: 5 * time.Millisecond,
		Logger:   quietLogger(),
		Open: func(path string, _ *logrus.Logger) (Device, error) {
			return &fakeDevice{}, nil
		},
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "js0"), nil, 0600)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dev, err := d.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fake Stick", dev.Name())
}

func TestDiscoverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := Discoverer{Dir: t.TempDir(), Interval: time.Millisecond, Logger: quietLogger()}
	_, err := d.Discover(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
