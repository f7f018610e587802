package instrument

import (
	"math"
	"sync"
)

// Panel is a Gauges implementation that keeps the last value set on each
// instrument for rendering.
type Panel struct {
	mu       sync.RWMutex
	readings Readings
}

type Readings struct {
	AirSpeed float64 // kts
	Roll     float64 // deg, attitude convention
	Pitch    float64 // deg
	Altitude float64 // ft
	Turn     float64
	Heading  float64 // deg, [0,360)
	Vario    float64 // 1000 ft/min
	Valid    bool
}

func NewPanel() *Panel {
	return &Panel{}
}

func (p *Panel) set(fn func(r *Readings)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.readings)
	p.readings.Valid = true
}

func (p *Panel) SetAirSpeed(v float64) { p.set(func(r *Readings) { r.AirSpeed = v }) }
func (p *Panel) SetRoll(v float64)     { p.set(func(r *Readings) { r.Roll = v }) }
func (p *Panel) SetPitch(v float64)    { p.set(func(r *Readings) { r.Pitch = v }) }
func (p *Panel) SetAltitude(v float64) { p.set(func(r *Readings) { r.Altitude = v }) }
func (p *Panel) SetTurn(v float64)     { p.set(func(r *Readings) { r.Turn = v }) }
func (p *Panel) SetVario(v float64)    { p.set(func(r *Readings) { r.Vario = v }) }

func (p *Panel) SetHeading(v float64) {
	v = normalizeHeading(v)
	p.set(func(r *Readings) { r.Heading = v })
}

// Apply replaces every reading at once, so Readings never returns a mix of
// two states.
func (p *Panel) Apply(r Readings) {
	r.Heading = normalizeHeading(r.Heading)
	p.set(func(cur *Readings) { *cur = r })
}

func normalizeHeading(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

func (p *Panel) Readings() Readings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.readings
}

// Compass returns the 16-point compass name of a heading.
func Compass(heading float64) string {
	points := [...]string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	h := math.Mod(heading, 360)
	if h < 0 {
		h += 360
	}
	return points[int(math.Round(h/22.5))%16]
}
