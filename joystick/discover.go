package joystick

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultDeviceDir        = "/dev/input"
	defaultDiscoverInterval = 500 * time.Millisecond
)

// Discoverer waits for a joystick to be plugged in.
type Discoverer struct {
	Dir      string
	Interval time.Duration
	Logger   *logrus.Logger

	// Open is overridable for tests; defaults to OpenLinux.
	Open func(path string, logger *logrus.Logger) (Device, error)
}

// Discover blocks until the first reported device can be opened or ctx ends.
// Returning a device is the "connected" signal for the poller.
func (d Discoverer) Discover(ctx context.Context) (Device, error) {
	dir := d.Dir
	if dir == "" {
		dir = DefaultDeviceDir
	}
	interval := d.Interval
	if interval <= 0 {
		interval = defaultDiscoverInterval
	}
	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	open := d.Open
	if open == nil {
		open = func(path string, logger *logrus.Logger) (Device, error) {
			return OpenLinux(path, logger)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if nodes := listNodes(dir); len(nodes) > 0 {
			dev, err := open(nodes[0], logger)
			if err == nil {
				logger.WithFields(logrus.Fields{
					"path": nodes[0],
					"name": dev.Name(),
				}).Info("Joystick connected")
				return dev, nil
			}
			logger.WithError(err).Debug("Joystick not ready")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// listNodes returns jsN nodes ordered by index, so the first entry is the
// first reported device.
func listNodes(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "js*"))
	if err != nil {
		return nil
	}

	index := func(p string) int {
		n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(p), "js"))
		if err != nil {
			return -1
		}
		return n
	}

	var nodes []string
	for _, m := range matches {
		if index(m) >= 0 {
			nodes = append(nodes, m)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return index(nodes[i]) < index(nodes[j]) })
	return nodes
}
