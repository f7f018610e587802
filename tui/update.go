package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/samaelod/aileron/input"
	"github.com/samaelod/aileron/scenario"
	"github.com/samaelod/aileron/session"
	"github.com/samaelod/aileron/types"
)

// openLogInEditor dumps the focused telemetry log to a temp file and opens
// it in $EDITOR.
func openLogInEditor(content string) tea.Cmd {
	f, err := os.CreateTemp("", "aileron-telemetry-*.log")
	if err != nil {
		return func() tea.Msg { return errMsg{err} }
	}

	_, err = f.WriteString(content)
	f.Close()
	if err != nil {
		return func() tea.Msg { return errMsg{err} }
	}
	tempPath := f.Name()

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "nano"
	}
	c := exec.Command(editor, tempPath)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		os.Remove(tempPath)
		return editorFinishedMsg{err}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.teardown()
			return m, tea.Quit
		}
		// q is typed into the form, so it only quits elsewhere.
		if msg.String() == "q" && m.screen != screenForm {
			m.teardown()
			return m, tea.Quit
		}
	}

	// Session messages are handled regardless of screen.
	switch msg := msg.(type) {
	case scenarioLoadedMsg:
		m.scenarioPath = msg.path
		m.logger.WithField("path", msg.path).Info("Scenario selected")
		return m, m.startSession(msg.scenario)

	case sessionStartedMsg:
		if msg.err != nil {
			m.recordError(msg.err)
		}
		if m.screen == screenConnecting {
			m.screen = screenActive
			m.resize()
		}
		return m, nil

	case telemetryStartedMsg:
		if msg.err != nil {
			m.recordError(msg.err)
		}
		return m, nil

	case stateMsg:
		if m.control == nil {
			return m, nil
		}
		m.state = types.VehicleState(msg)
		m.hasState = true
		return m, waitForState(m.control)

	case telemetryMsg:
		if m.telemetry == nil {
			return m, nil
		}
		m.refreshLogs()
		return m, waitForTelemetry(m.telemetry)

	case transportErrMsg:
		m.recordError(msg.err)
		var terr *session.TransportError
		if errors.As(msg.err, &terr) && terr.Channel == "telemetry" && m.telemetry != nil {
			return m, waitForError(m.telemetry.Errors())
		}
		if m.control != nil {
			return m, waitForError(m.control.Errors())
		}
		return m, nil

	case joystickMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				m.recordError(msg.err)
			}
			return m, nil
		}
		return m, m.attachJoystick(msg.device)

	case joystickLostMsg:
		return m, m.detachJoystick(msg.device)

	case refreshMsg:
		if m.control == nil {
			return m, nil
		}
		return m, refreshCmd()

	case errMsg:
		m.err = msg.err
		m.logger.WithError(msg.err).Error("Console error")
		return m, nil

	case editorFinishedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil
	}

	switch m.screen {

	case screenSourceSelect:
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "up", "k", "left", "h":
				m.menuCursor--
				if m.menuCursor < 0 {
					m.menuCursor = 1
				}
			case "down", "j", "right", "l":
				m.menuCursor++
				if m.menuCursor > 1 {
					m.menuCursor = 0
				}
			case "enter":
				m.err = nil
				switch m.menuCursor {
				case 0:
					m.source = sourceForm
					m.form = newForm()
					m.screen = screenForm
				case 1:
					m.source = sourceLua
					m.browser = newScenarioBrowser()
					m.resize()
					m.screen = screenFilePicker
				}
				return m, nil
			}
		}
		return m, nil

	case screenForm:
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "esc":
				m.screen = screenSourceSelect
				return m, nil
			case "enter":
				sc, err := m.form.Config()
				if err != nil {
					m.form.err = err
					return m, nil
				}
				m.form.err = nil
				s := &scenario.Scenario{Session: sc}
				if err := scenario.Validate(s); err != nil {
					m.form.err = err
					return m, nil
				}
				return m, saveFormCmd(s, m.cfg.RecentDir)
			}
		}
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd

	case screenFilePicker:
		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
			m.screen = screenSourceSelect
			return m, nil
		}

		var cmd tea.Cmd
		m.browser, cmd = m.browser.Update(msg)

		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
			e, ok := m.browser.selected()
			if !ok || e.dir {
				return m, cmd
			}
			m.err = nil
			return m, loadScenarioCmd(e.path, m.cfg.RecentDir, true)
		}
		return m, cmd

	case screenConnecting:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case screenActive:
		if msg, ok := msg.(tea.KeyMsg); ok {
			return m.handleActiveKey(msg)
		}
		if m.activeView != viewControls {
			var cmd tea.Cmd
			vp := m.focusedViewport()
			*vp, cmd = vp.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m Model) handleActiveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.activeView = (m.activeView + 1) % viewCount
		return m, nil
	case "shift+tab":
		m.activeView = (m.activeView + viewCount - 1) % viewCount
		return m, nil
	case "a":
		// Request only: the label changes when the simulator confirms.
		if m.control != nil {
			m.control.Arm()
		}
		return m, nil
	case "d":
		m.showDetail = !m.showDetail
		m.refreshLogs()
		return m, nil
	}

	if m.activeView == viewControls {
		switch msg.String() {
		case "up", "k":
			m.lever = input.Control((int(m.lever) + len(input.Controls) - 1) % len(input.Controls))
		case "down", "j":
			m.lever = input.Control((int(m.lever) + 1) % len(input.Controls))
		case "left", "h":
			m.adjust(m.lever, -1)
		case "right", "l":
			m.adjust(m.lever, 1)
		case "H", "pgdown":
			m.adjust(m.lever, -10)
		case "L", "pgup":
			m.adjust(m.lever, 10)
		case "c":
			// Center the stick; throttle is absolute and has no center.
			if m.lever != input.Throttle && m.control != nil {
				cur := input.Get(m.control.Command(), m.lever)
				m.adjust(m.lever, 50-cur)
			}
		}
		return m, nil
	}

	vp := m.focusedViewport()
	switch msg.String() {
	case "g":
		vp.GotoTop()
		return m, nil
	case "G":
		vp.GotoBottom()
		return m, nil
	case "e":
		return m, openLogInEditor(m.logText(m.focusedDirection(), false))
	}

	var cmd tea.Cmd
	*vp, cmd = vp.Update(msg)
	return m, cmd
}

func (m *Model) recordError(err error) {
	m.lastErr = err
	m.errCount++
}

func (m *Model) focusedViewport() *viewport.Model {
	if m.activeView == viewRX {
		return &m.rxViewport
	}
	return &m.txViewport
}

func (m Model) focusedDirection() types.Direction {
	if m.activeView == viewRX {
		return types.Inbound
	}
	return types.Outbound
}

// logText renders one direction's log, most recent first. Plain output is
// for the editor.
func (m Model) logText(dir types.Direction, styled bool) string {
	if m.telemetry == nil {
		return ""
	}
	entries := m.telemetry.Log(dir).Entries()
	if len(entries) == 0 {
		return "No frames yet."
	}

	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		label := e.Direction.String()
		if styled {
			label = styleRX.Render(label)
			if e.Direction == types.Outbound {
				label = styleTX.Render(e.Direction.String())
			}
		}
		fmt.Fprintf(&sb, "%s %s #%d\n", label, e.At.Format("15:04:05.000"), e.Seq)
		sb.WriteString(e.Text())
		if m.showDetail && e.Detail != "" {
			sb.WriteString("\n")
			sb.WriteString(e.Detail)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) refreshLogs() {
	for _, v := range []struct {
		vp  *viewport.Model
		dir types.Direction
	}{{&m.txViewport, types.Outbound}, {&m.rxViewport, types.Inbound}} {
		atTop := v.vp.AtTop()
		v.vp.SetContent(m.logText(v.dir, true))
		if atTop {
			v.vp.GotoTop()
		}
	}
}
