package joystick

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Linux joystick API event types (linux/joystick.h).
const (
	eventButton = 0x01
	eventAxis   = 0x02
	eventInit   = 0x80

	axisMax = 32767
)

// Snapshot is the state of a device at one instant. Axes are scaled to [-1,1].
type Snapshot struct {
	Axes    []float64
	Buttons uint32
}

// Device is a connected input controller.
type Device interface {
	Name() string
	// Snapshot returns the current state, or false if the device is gone.
	Snapshot() (Snapshot, bool)
	// Gone is closed once the device has been unplugged or closed.
	Gone() <-chan struct{}
	Close() error
}

// jsEvent mirrors struct js_event.
type jsEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// LinuxDevice reads a /dev/input/jsN node. A background goroutine folds the
// event stream into the latest axis and button state.
type LinuxDevice struct {
	path string
	name string
	f    io.ReadCloser

	mu      sync.Mutex
	axes    []float64
	buttons uint32
	gone    bool

	logger *logrus.Logger
	done   chan struct{}
}

func OpenLinux(path string, logger *logrus.Logger) (*LinuxDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open joystick %s: %w", path, err)
	}
	return newLinuxDevice(path, deviceName(path), f, logger), nil
}

func newLinuxDevice(path, name string, r io.ReadCloser, logger *logrus.Logger) *LinuxDevice {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &LinuxDevice{
		path:   path,
		name:   name,
		f:      r,
		logger: logger,
		done:   make(chan struct{}),
	}
	go d.readEvents()
	return d
}

// deviceName reads the kernel-reported name from sysfs, falling back to the
// node path.
func deviceName(path string) string {
	node := filepath.Base(path)
	data, err := os.ReadFile(filepath.Join("/sys/class/input", node, "device", "name"))
	if err != nil {
		return path
	}
	return strings.TrimSpace(string(data))
}

func (d *LinuxDevice) readEvents() {
	defer close(d.done)

	for {
		var ev jsEvent
		if err := binary.Read(d.f, binary.LittleEndian, &ev); err != nil {
			d.mu.Lock()
			d.gone = true
			d.mu.Unlock()

			if !errors.Is(err, os.ErrClosed) {
				d.logger.WithError(err).WithField("device", d.path).Warn("Joystick read stopped")
			}
			return
		}
		d.apply(ev)
	}
}

func (d *LinuxDevice) apply(ev jsEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev.Type &^ eventInit {
	case eventAxis:
		n := int(ev.Number)
		for len(d.axes) <= n {
			d.axes = append(d.axes, 0)
		}
		v := float64(ev.Value) / axisMax
		if v < -1 {
			v = -1
		}
		d.axes[n] = v
	case eventButton:
		if ev.Number >= 32 {
			return
		}
		if ev.Value != 0 {
			d.buttons |= 1 << ev.Number
		} else {
			d.buttons &^= 1 << ev.Number
		}
	}
}

func (d *LinuxDevice) Name() string { return d.name }

func (d *LinuxDevice) Gone() <-chan struct{} { return d.done }

func (d *LinuxDevice) Snapshot() (Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gone {
		return Snapshot{}, false
	}
	axes := make([]float64, len(d.axes))
	copy(axes, d.axes)
	return Snapshot{Axes: axes, Buttons: d.buttons}, true
}

// Close releases the node. The reader goroutine exits on its next read error.
func (d *LinuxDevice) Close() error {
	return d.f.Close()
}
