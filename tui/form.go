package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/samaelod/aileron/types"
)

type formField struct {
	label string
	unit  string
	input textinput.Model
}

// form is the startup form. The engine toggle sits after the text fields.
type form struct {
	fields []formField
	engine bool
	focus  int
	err    error
}

func newForm() form {
	def := types.DefaultSessionConfig()
	values := []struct {
		label, unit string
		value       float64
	}{
		{"Altitude", "ft", def.Altitude},
		{"Speed", "kts", def.Speed},
		{"Roll", "deg", def.Roll},
		{"Pitch", "deg", def.Pitch},
		{"Heading", "deg", def.Heading},
		{"Throttle", "%", float64(def.Throttle)},
	}

	f := form{engine: def.Engine}
	for _, v := range values {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 10
		ti.Width = 12
		ti.SetValue(strconv.FormatFloat(v.value, 'f', -1, 64))
		f.fields = append(f.fields, formField{label: v.label, unit: v.unit, input: ti})
	}
	f.fields[0].input.Focus()
	return f
}

func (f form) engineFocused() bool { return f.focus == len(f.fields) }

func (f *form) move(delta int) {
	n := len(f.fields) + 1
	f.focus = (f.focus + delta + n) % n
	for i := range f.fields {
		if i == f.focus {
			f.fields[i].input.Focus()
		} else {
			f.fields[i].input.Blur()
		}
	}
}

func (f form) Update(msg tea.Msg) (form, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab", "down":
			f.move(1)
			return f, nil
		case "shift+tab", "up":
			f.move(-1)
			return f, nil
		case " ":
			if f.engineFocused() {
				f.engine = !f.engine
				return f, nil
			}
		}
	}
	if f.engineFocused() {
		return f, nil
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd
}

// Config parses the form. Only numeric parsing is checked.
func (f form) Config() (types.SessionConfig, error) {
	nums := make([]float64, len(f.fields))
	for i, field := range f.fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field.input.Value()), 64)
		if err != nil {
			return types.SessionConfig{}, fmt.Errorf("%s: not a number", strings.ToLower(field.label))
		}
		nums[i] = v
	}

	return types.SessionConfig{
		Altitude: nums[0],
		Speed:    nums[1],
		Roll:     nums[2],
		Pitch:    nums[3],
		Heading:  nums[4],
		Throttle: int(nums[5]),
		Engine:   f.engine,
	}, nil
}

func (f form) View() string {
	var rows []string
	for i, field := range f.fields {
		label := styleLabel.Render(field.label + ":")
		if i == f.focus {
			label = styleLabel.Foreground(colorSecondary).Render(field.label + ":")
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			label,
			styleInput.Render(field.input.View()),
			styleSubtext.Render(" "+field.unit),
		))
	}

	engine := "[ ] off"
	if f.engine {
		engine = "[x] on"
	}
	engineLabel := styleLabel.Render("Engine:")
	if f.engineFocused() {
		engineLabel = styleLabel.Foreground(colorSecondary).Render("Engine:")
		engine = styleSelected.Render(engine)
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left, engineLabel, " "+engine))

	if f.err != nil {
		rows = append(rows, "", styleError.Render("Error: "+f.err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
