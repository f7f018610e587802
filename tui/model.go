package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/sirupsen/logrus"

	"github.com/samaelod/aileron/config"
	"github.com/samaelod/aileron/input"
	"github.com/samaelod/aileron/instrument"
	"github.com/samaelod/aileron/joystick"
	"github.com/samaelod/aileron/scenario"
	"github.com/samaelod/aileron/session"
	"github.com/samaelod/aileron/types"
)

type screen int

const (
	screenSourceSelect screen = iota
	screenForm
	screenFilePicker
	screenConnecting
	screenActive
)

type sourceType int

const (
	sourceForm sourceType = iota
	sourceLua
)

const (
	viewControls = iota
	viewTX
	viewRX
	viewCount
)

// Options are the collaborators a console run is built from.
type Options struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Version string

	// Dialer overrides the websocket dialer of both sessions.
	Dialer  session.Dialer
	Capture session.FrameRecorder

	// NoJoystick disables device discovery.
	NoJoystick bool
	// OpenJoystick overrides the Linux driver.
	OpenJoystick func(path string, logger *logrus.Logger) (joystick.Device, error)
}

type Model struct {
	opts   Options
	cfg    *config.Config
	logger *logrus.Logger

	screen screen
	source sourceType
	err    error

	menuCursor int

	form    form
	browser scenarioBrowser
	spinner spinner.Model

	scenario     *scenario.Scenario
	scenarioPath string

	// Session resources are pointers so every copy of the model shares them.
	ctx       context.Context
	cancel    context.CancelFunc
	control   *session.Control
	telemetry *session.Telemetry
	panel     *instrument.Panel
	stick     *stickState

	state    types.VehicleState
	hasState bool
	lastErr  error
	errCount int

	activeView int
	lever      input.Control
	showDetail bool

	txViewport viewport.Model
	rxViewport viewport.Model

	width  int
	height int
}

// stickState is written from the discovery command and read by View.
type stickState struct {
	device joystick.Device
	poller *joystick.Poller
}

const (
	minWindowWidth  = 80
	minWindowHeight = 20
	footerHeight    = 4
	sideWidth       = 44
)
