package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/samaelod/aileron/input"
	"github.com/samaelod/aileron/instrument"
	"github.com/samaelod/aileron/joystick"
	"github.com/samaelod/aileron/scenario"
	"github.com/samaelod/aileron/session"
	"github.com/samaelod/aileron/types"
)

const refreshInterval = 100 * time.Millisecond

type scenarioLoadedMsg struct {
	scenario *scenario.Scenario
	path     string
}

type sessionStartedMsg struct{ err error }
type telemetryStartedMsg struct{ err error }
type stateMsg types.VehicleState
type telemetryMsg struct{}
type transportErrMsg struct{ err error }
type joystickMsg struct {
	device joystick.Device
	err    error
}
type joystickLostMsg struct{ device joystick.Device }
type refreshMsg time.Time
type errMsg struct{ err error }
type editorFinishedMsg struct{ err error }

func loadScenarioCmd(path, recentDir string, saveCopy bool) tea.Cmd {
	return func() tea.Msg {
		s, err := scenario.Read(path)
		if err != nil {
			return errMsg{err}
		}

		finalPath := path
		if saveCopy {
			newPath, err := scenario.SaveToRecent(recentDir, s, path)
			if err != nil {
				return errMsg{err}
			}
			finalPath = newPath
		}
		return scenarioLoadedMsg{scenario: s, path: finalPath}
	}
}

func saveFormCmd(s *scenario.Scenario, recentDir string) tea.Cmd {
	return func() tea.Msg {
		path, err := scenario.SaveToRecent(recentDir, s, "")
		if err != nil {
			return errMsg{err}
		}
		return scenarioLoadedMsg{scenario: s, path: path}
	}
}

// startSession builds both sessions for s and returns the commands that
// connect them. Nothing is dialed until the commands run.
func (m *Model) startSession(s *scenario.Scenario) tea.Cmd {
	m.teardown()

	controlURL, err := m.cfg.ControlURL()
	if err != nil {
		m.err = err
		return nil
	}
	telemetryURL, err := m.cfg.TelemetryURL()
	if err != nil {
		m.err = err
		return nil
	}

	m.scenario = s
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.panel = instrument.NewPanel()
	m.stick = &stickState{}
	m.state = types.VehicleState{}
	m.hasState = false
	m.lastErr = nil
	m.errCount = 0

	panel := m.panel
	m.control = session.NewControl(session.ControlConfig{
		URL:         controlURL,
		StatePeriod: m.cfg.StatePeriod.Duration,
		Dialer:      m.opts.Dialer,
		Logger:      m.logger,
		Sink:        func(st types.VehicleState) { instrument.Present(st, panel) },
	})
	m.telemetry = session.NewTelemetry(session.TelemetryConfig{
		URL:      telemetryURL,
		Capacity: m.cfg.LogLines,
		Dialer:   m.opts.Dialer,
		Logger:   m.logger,
		Capture:  m.opts.Capture,
	})
	m.screen = screenConnecting

	cmds := []tea.Cmd{
		m.spinner.Tick,
		startControlCmd(m.ctx, m.control, s.Session),
		startTelemetryCmd(m.ctx, m.telemetry),
		waitForState(m.control),
		waitForTelemetry(m.telemetry),
		waitForError(m.control.Errors()),
		waitForError(m.telemetry.Errors()),
		refreshCmd(),
	}
	if !m.opts.NoJoystick {
		cmds = append(cmds, m.discoverJoystickCmd())
	}
	return tea.Batch(cmds...)
}

func startControlCmd(ctx context.Context, c *session.Control, sc types.SessionConfig) tea.Cmd {
	return func() tea.Msg {
		return sessionStartedMsg{c.Start(ctx, sc)}
	}
}

func startTelemetryCmd(ctx context.Context, t *session.Telemetry) tea.Cmd {
	return func() tea.Msg {
		return telemetryStartedMsg{t.Connect(ctx)}
	}
}

func waitForState(c *session.Control) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-c.States()
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

func waitForTelemetry(t *session.Telemetry) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-t.Updates(); !ok {
			return nil
		}
		return telemetryMsg{}
	}
}

func waitForError(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return nil
		}
		return transportErrMsg{err}
	}
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) discoverJoystickCmd() tea.Cmd {
	ctx := m.ctx
	d := joystick.Discoverer{
		Dir:    m.cfg.JoystickDir,
		Logger: m.logger,
		Open:   m.opts.OpenJoystick,
	}
	return func() tea.Msg {
		dev, err := d.Discover(ctx)
		return joystickMsg{device: dev, err: err}
	}
}

// attachJoystick starts polling dev into the control session and returns
// the command that reports its loss.
func (m *Model) attachJoystick(dev joystick.Device) tea.Cmd {
	if m.stick == nil || m.control == nil {
		dev.Close()
		return nil
	}

	control := m.control
	p := joystick.NewPoller(dev, control.SetCommand, joystick.PollerConfig{
		Deadzone: m.cfg.Deadzone,
		Clock:    joystick.NewFrameClock(m.cfg.FrameRate),
		Logger:   m.logger,
	})
	m.stick.device = dev
	m.stick.poller = p
	p.Start(m.ctx)

	m.logger.WithField("device", dev.Name()).Info("Joystick attached")
	return waitForJoystickLoss(m.ctx, dev)
}

func waitForJoystickLoss(ctx context.Context, dev joystick.Device) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-dev.Gone():
			return joystickLostMsg{device: dev}
		case <-ctx.Done():
			return nil
		}
	}
}

// detachJoystick drops the current device. Discovery is restarted so a
// replugged controller is picked up again.
func (m *Model) detachJoystick(dev joystick.Device) tea.Cmd {
	if m.stick == nil || m.stick.device != dev {
		return nil
	}
	if m.stick.poller != nil {
		m.stick.poller.Stop()
	}
	dev.Close()
	m.stick.device = nil
	m.stick.poller = nil

	m.logger.WithField("device", dev.Name()).Warn("Joystick disconnected")
	if m.opts.NoJoystick {
		return nil
	}
	return m.discoverJoystickCmd()
}

func (m Model) adjust(ctrl input.Control, delta int) {
	if m.control != nil {
		m.control.Adjust(ctrl, delta)
	}
}

// teardown stops the poller and closes both sessions.
func (m Model) teardown() {
	if m.stick != nil && m.stick.poller != nil {
		m.stick.poller.Stop()
		m.stick.device.Close()
	}
	if m.cancel != nil {
		m.cancel()
	}
	if m.control != nil {
		if err := m.control.Close(); err != nil {
			m.logger.WithError(err).Debug("Control close")
		}
		stats := m.control.Stats()
		m.logger.WithFields(logrus.Fields{
			"sent":      stats.Sent,
			"dropped":   stats.Dropped,
			"received":  stats.Received,
			"malformed": stats.Malformed,
		}).Info("Control session closed")
	}
	if m.telemetry != nil {
		if err := m.telemetry.Close(); err != nil {
			m.logger.WithError(err).Debug("Telemetry close")
		}
	}
}
