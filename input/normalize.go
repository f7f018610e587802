package input

import (
	"math"

	"github.com/samaelod/aileron/types"
)

// DefaultDeadzone is the axis magnitude below which joystick input reads as
// centered.
const DefaultDeadzone = 0.05

// Axis indices on the first joystick, matching the common gamepad layout.
const (
	AxisYaw      = 0
	AxisThrottle = 1
	AxisRoll     = 2
	AxisPitch    = 3
)

// Normalize maps an axis value in [-1,1] onto an integer lever position in
// [0,100]; 0 maps to 50.
func Normalize(v float64) int {
	n := int(math.Round((v + 1) * 50))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// Deadzone forces small axis deflections to zero.
func Deadzone(v float64) float64 {
	return Normalizer{Threshold: DefaultDeadzone}.Deadzone(v)
}

// FromAxes builds a command from raw joystick axes using the default deadzone.
func FromAxes(axes []float64) types.ControlCommand {
	return Normalizer{Threshold: DefaultDeadzone}.FromAxes(axes)
}

// Normalizer converts raw joystick axes into control commands.
type Normalizer struct {
	Threshold float64
}

func (n Normalizer) Deadzone(v float64) float64 {
	if math.Abs(v) < n.Threshold {
		return 0
	}
	return v
}

// FromAxes applies the deadzone and normalization to each axis independently.
// Throttle uses the negated vertical axis so that pushing forward opens it.
// Axes the device does not report read as centered.
func (n Normalizer) FromAxes(axes []float64) types.ControlCommand {
	axis := func(i int) float64 {
		if i < len(axes) {
			return axes[i]
		}
		return 0
	}

	return types.ControlCommand{
		Roll:     Normalize(n.Deadzone(axis(AxisRoll))),
		Pitch:    Normalize(n.Deadzone(axis(AxisPitch))),
		Yaw:      Normalize(n.Deadzone(axis(AxisYaw))),
		Throttle: Normalize(n.Deadzone(-axis(AxisThrottle))),
	}
}

// Clamp bounds a manual slider value to [0,100]. Slider values are already
// normalized and never pass through the deadzone.
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
