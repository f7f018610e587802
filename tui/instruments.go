package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/samaelod/aileron/input"
	"github.com/samaelod/aileron/instrument"
	"github.com/samaelod/aileron/types"
)

const gaugeRows = 2

func gauge(title, value, note string) string {
	body := styleGaugeTitle.Render(title) + "\n" + styleValue.Render(value)
	if note != "" {
		body += " " + styleSubtext.Render(note)
	}
	return styleGauge.Render(body)
}

// horizon draws a level line tilted by bank angle.
func horizon(roll float64) string {
	switch {
	case roll > 5:
		return strings.Repeat("╱", 5)
	case roll < -5:
		return strings.Repeat("╲", 5)
	}
	return strings.Repeat("─", 5)
}

func renderInstruments(r instrument.Readings) string {
	if !r.Valid {
		dash := "--"
		top := lipgloss.JoinHorizontal(lipgloss.Top,
			gauge("Attitude", dash, ""), gauge("Airspeed", dash, ""), gauge("Altimeter", dash, ""))
		bottom := lipgloss.JoinHorizontal(lipgloss.Top,
			gauge("Turn", dash, ""), gauge("Heading", dash, ""), gauge("Vario", dash, ""))
		return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
	}

	turn := "coordinated"
	switch {
	case r.Turn > 0.5:
		turn = "right"
	case r.Turn < -0.5:
		turn = "left"
	}

	vario := "↑"
	if r.Vario < 0 {
		vario = "↓"
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		gauge("Attitude", fmt.Sprintf("%s %+.0f°/%+.0f°", horizon(r.Roll), r.Roll, r.Pitch), ""),
		gauge("Airspeed", fmt.Sprintf("%.0f", r.AirSpeed), "kts"),
		gauge("Altimeter", fmt.Sprintf("%.0f", r.Altitude), "ft"),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		gauge("Turn", fmt.Sprintf("%.1f", r.Turn), turn),
		gauge("Heading", fmt.Sprintf("%03.0f°", r.Heading), instrument.Compass(r.Heading)),
		gauge("Vario", fmt.Sprintf("%s %+.2f", vario, r.Vario), "kft/m"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func renderSlider(ctrl input.Control, value, width int, focused bool) string {
	if width < 10 {
		width = 10
	}
	filled := value * width / 100

	label := "  " + ctrl.String()
	labelStyle := styleLabel.Width(11)
	if focused {
		label = "> " + ctrl.String()
		labelStyle = labelStyle.Foreground(colorSecondary).Bold(true)
	}

	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label),
		styleSliderFill.Render(strings.Repeat("█", filled)),
		styleSliderRest.Render(strings.Repeat("░", width-filled)),
		styleValue.Render(fmt.Sprintf(" %3d", value)),
	)
}

func renderControls(cmd types.ControlCommand, focused input.Control, active bool, state types.VehicleState, width int) string {
	label := instrument.ArmLabel(state)
	button := styleArmButton.Render(label)
	if state.Armed {
		button = styleDisarmButton.Render(label)
	}

	rows := []string{button, ""}
	for _, ctrl := range input.Controls {
		rows = append(rows, renderSlider(ctrl, input.Get(cmd, ctrl), width-16, active && ctrl == focused))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderStatus(st types.VehicleState, has bool) string {
	if !has {
		return styleSubtext.Render("Waiting for vehicle state...")
	}

	var rows []string
	for _, l := range instrument.Status(st) {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			styleLabel.Render(l.Label+":"), styleValue.Render(l.Value)))
	}
	rows = append(rows, "")
	for _, l := range instrument.Outputs(st) {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			styleLabel.Render(l.Label+":"), styleValue.Render(l.Value)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
