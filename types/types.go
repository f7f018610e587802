package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks an inbound payload that does not match the expected shape.
var ErrMalformed = errors.New("malformed message")

// SessionConfig holds the initial flight conditions sent once as the init message.
type SessionConfig struct {
	Altitude float64 `json:"altitude" yaml:"altitude"` // ft
	Speed    float64 `json:"speed" yaml:"speed"`       // kts
	Roll     float64 `json:"roll" yaml:"roll"`         // deg
	Pitch    float64 `json:"pitch" yaml:"pitch"`       // deg
	Heading  float64 `json:"heading" yaml:"heading"`   // deg
	Throttle int     `json:"throttle" yaml:"throttle"` // 0-100
	Engine   bool    `json:"engine" yaml:"engine"`
}

// DefaultSessionConfig is what the startup form is prefilled with.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Altitude: 1000,
		Speed:    60,
		Heading:  90,
		Throttle: 40,
		Engine:   true,
	}
}

// ControlCommand is a full set of stick and lever positions, each in [0,100].
// Roll, pitch and yaw are centered on 50; throttle is absolute.
type ControlCommand struct {
	Roll     int `json:"roll"`
	Pitch    int `json:"pitch"`
	Yaw      int `json:"yaw"`
	Throttle int `json:"throttle"`
}

// Neutral returns centered sticks with the given throttle.
func Neutral(throttle int) ControlCommand {
	return ControlCommand{Roll: 50, Pitch: 50, Yaw: 50, Throttle: throttle}
}

// VehicleState is one state reply from the simulator. Each reply replaces the
// previous one wholesale.
type VehicleState struct {
	Roll     float64 `json:"roll"`
	Pitch    float64 `json:"pitch"`
	Yaw      float64 `json:"yaw"`
	Altitude float64 `json:"altitude"`
	Airspeed float64 `json:"airspeed"`
	RPM      float64 `json:"rpm"`

	ClimbRate float64 `json:"climb_rate"` // ft/min
	TurnRate  float64 `json:"turn_rate"`
	Armed     bool    `json:"armed"`

	RollOutput     float64 `json:"roll_output"`
	PitchOutput    float64 `json:"pitch_output"`
	YawOutput      float64 `json:"yaw_output"`
	ThrottleOutput float64 `json:"throttle_output"`
}

// DecodeVehicleState parses a state reply. The payload must be a JSON object;
// absent fields read as zero.
func DecodeVehicleState(data []byte) (VehicleState, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return VehicleState{}, fmt.Errorf("%w: vehicle state: not an object", ErrMalformed)
	}
	var st VehicleState
	if err := json.Unmarshal(data, &st); err != nil {
		return VehicleState{}, fmt.Errorf("%w: vehicle state: %v", ErrMalformed, err)
	}
	return st, nil
}

// Direction of a telemetry frame relative to the autopilot.
type Direction int

const (
	Inbound  Direction = 0
	Outbound Direction = 1
)

func (d Direction) String() string {
	if d == Outbound {
		return "TX"
	}
	return "RX"
}

// TelemetryEvent is one traced protocol frame from the telemetry channel.
type TelemetryEvent struct {
	Direction Direction `json:"direction"`
	Type      string    `json:"type"`
	Decoded   *string   `json:"decoded,omitempty"`
	Raw       string    `json:"raw"`
}

// DecodeTelemetryEvent parses and validates a telemetry frame. Any direction
// value other than 1 is treated as inbound.
func DecodeTelemetryEvent(data []byte) (TelemetryEvent, error) {
	var wire struct {
		Direction *float64 `json:"direction"`
		Type      *string  `json:"type"`
		Decoded   *string  `json:"decoded"`
		Raw       *string  `json:"raw"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return TelemetryEvent{}, fmt.Errorf("%w: telemetry: %v", ErrMalformed, err)
	}
	if wire.Direction == nil {
		return TelemetryEvent{}, fmt.Errorf("%w: telemetry: missing direction", ErrMalformed)
	}
	if wire.Type == nil {
		return TelemetryEvent{}, fmt.Errorf("%w: telemetry: missing type", ErrMalformed)
	}
	if wire.Raw == nil && wire.Decoded == nil {
		return TelemetryEvent{}, fmt.Errorf("%w: telemetry: neither raw nor decoded present", ErrMalformed)
	}

	ev := TelemetryEvent{Direction: Inbound, Type: *wire.Type, Decoded: wire.Decoded}
	if *wire.Direction == 1 {
		ev.Direction = Outbound
	}
	if wire.Raw != nil {
		ev.Raw = *wire.Raw
	}
	return ev, nil
}
