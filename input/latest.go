package input

import (
	"sync"

	"github.com/samaelod/aileron/types"
)

// Control identifies one of the four lever positions of a command.
type Control int

const (
	Roll Control = iota
	Pitch
	Yaw
	Throttle
)

var controlNames = [...]string{"roll", "pitch", "yaw", "throttle"}

func (c Control) String() string {
	if c < Roll || c > Throttle {
		return "unknown"
	}
	return controlNames[c]
}

// Controls lists the levers in display order.
var Controls = []Control{Roll, Pitch, Yaw, Throttle}

// Get returns the value of one lever of cmd.
func Get(cmd types.ControlCommand, c Control) int {
	switch c {
	case Roll:
		return cmd.Roll
	case Pitch:
		return cmd.Pitch
	case Yaw:
		return cmd.Yaw
	case Throttle:
		return cmd.Throttle
	}
	return 0
}

// Set returns cmd with one lever replaced by a clamped value.
func Set(cmd types.ControlCommand, c Control, v int) types.ControlCommand {
	v = Clamp(v)
	switch c {
	case Roll:
		cmd.Roll = v
	case Pitch:
		cmd.Pitch = v
	case Yaw:
		cmd.Yaw = v
	case Throttle:
		cmd.Throttle = v
	}
	return cmd
}

// Latest is the single-slot cell both input producers write. Whoever writes
// last wins; readers always see a complete command.
type Latest struct {
	mu      sync.Mutex
	cmd     types.ControlCommand
	version uint64
}

func NewLatest(initial types.ControlCommand) *Latest {
	return &Latest{cmd: initial}
}

// Store replaces the command and returns the new version.
func (l *Latest) Store(cmd types.ControlCommand) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cmd = cmd
	l.version++
	return l.version
}

// Update applies fn to the current command atomically, so a manual edit of one
// lever never resurrects stale values of the others.
func (l *Latest) Update(fn func(types.ControlCommand) types.ControlCommand) (types.ControlCommand, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cmd = fn(l.cmd)
	l.version++
	return l.cmd, l.version
}

func (l *Latest) Load() (types.ControlCommand, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd, l.version
}
