package instrument

import (
	"fmt"

	"github.com/samaelod/aileron/types"
)

// Gauges is the set of flight instruments a vehicle state is shown on.
type Gauges interface {
	SetAirSpeed(v float64)
	SetRoll(v float64)
	SetPitch(v float64)
	SetAltitude(v float64)
	SetTurn(v float64)
	SetHeading(v float64)
	SetVario(v float64)
}

// Applier is implemented by gauges that take a whole set of readings in one
// update.
type Applier interface {
	Apply(r Readings)
}

// ReadingsOf maps a state onto instrument readings. The attitude indicator
// takes roll with the opposite sign and the variometer reads thousands of
// ft/min.
func ReadingsOf(st types.VehicleState) Readings {
	return Readings{
		AirSpeed: st.Airspeed,
		Roll:     -st.Roll,
		Pitch:    st.Pitch,
		Altitude: st.Altitude,
		Turn:     st.TurnRate,
		Heading:  st.Yaw,
		Vario:    st.ClimbRate / 1000,
		Valid:    true,
	}
}

// Present shows a state on the gauges, in a single update when g is an
// Applier.
func Present(st types.VehicleState, g Gauges) {
	r := ReadingsOf(st)
	if a, ok := g.(Applier); ok {
		a.Apply(r)
		return
	}
	g.SetAirSpeed(r.AirSpeed)
	g.SetRoll(r.Roll)
	g.SetPitch(r.Pitch)
	g.SetAltitude(r.Altitude)
	g.SetTurn(r.Turn)
	g.SetHeading(r.Heading)
	g.SetVario(r.Vario)
}

// ArmLabel is the label of the arm button: the action it requests next.
func ArmLabel(st types.VehicleState) string {
	if st.Armed {
		return "DISARM"
	}
	return "ARM"
}

// Line is one labeled value of the textual status view.
type Line struct {
	Label string
	Value string
}

func Status(st types.VehicleState) []Line {
	return []Line{
		{"Roll", fmt.Sprintf("%.1f°", st.Roll)},
		{"Pitch", fmt.Sprintf("%.1f°", st.Pitch)},
		{"Yaw", fmt.Sprintf("%.1f°", st.Yaw)},
		{"Altitude", fmt.Sprintf("%.0f ft", st.Altitude)},
		{"Airspeed", fmt.Sprintf("%.1f kts", st.Airspeed)},
		{"RPM", fmt.Sprintf("%.0f", st.RPM)},
	}
}

// Outputs are the controller output values reported by the simulator.
func Outputs(st types.VehicleState) []Line {
	return []Line{
		{"Roll out", fmt.Sprintf("%.1f", st.RollOutput)},
		{"Pitch out", fmt.Sprintf("%.1f", st.PitchOutput)},
		{"Yaw out", fmt.Sprintf("%.1f", st.YawOutput)},
		{"Throttle out", fmt.Sprintf("%.1f", st.ThrottleOutput)},
	}
}
