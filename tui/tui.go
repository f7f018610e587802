package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/samaelod/aileron/config"
	"github.com/samaelod/aileron/input"
	"github.com/samaelod/aileron/logging"
)

func New(opts Options) Model {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styleSelected

	return Model{
		opts:       opts,
		cfg:        opts.Config,
		logger:     opts.Logger,
		screen:     screenSourceSelect,
		form:       newForm(),
		browser:    newScenarioBrowser(),
		spinner:    sp,
		lever:      input.Throttle,
		txViewport: viewport.New(10, 10),
		rxViewport: viewport.New(10, 10),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Run starts the console and tears the session down when it exits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		m.teardown()
	}
	return err
}
