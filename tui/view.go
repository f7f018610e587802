package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/samaelod/aileron/instrument"
	"github.com/samaelod/aileron/session"
	"github.com/samaelod/aileron/types"
)

func renderScrollbar(vp viewport.Model, height int) string {
	total := vp.TotalLineCount()
	visible := vp.VisibleLineCount()

	if total <= visible {
		return ""
	}

	trackHeight := height
	if trackHeight < 1 {
		trackHeight = visible
	}

	thumbPos := int(float64(trackHeight-1) * vp.ScrollPercent())
	if thumbPos < 0 {
		thumbPos = 0
	}
	if thumbPos > trackHeight-1 {
		thumbPos = trackHeight - 1
	}

	var sb strings.Builder
	for i := 0; i < trackHeight; i++ {
		if i == thumbPos {
			sb.WriteString(scrollbarThumb.Render("█"))
		} else {
			sb.WriteString(scrollbarTrack.Render("│"))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// layout holds the active screen geometry shared by View and resize.
type layout struct {
	windowWidth  int
	windowHeight int
	sideWidth    int
	rightWidth   int
	gaugesHeight int
	logsHeight   int
	logWidth     int
	vpWidth      int
	vpHeight     int
}

func (m Model) layout() layout {
	l := layout{
		windowWidth:  m.width - 4,
		windowHeight: m.height - 4,
		sideWidth:    sideWidth,
	}
	availHeight := l.windowHeight - 1 - footerHeight

	l.rightWidth = l.windowWidth - l.sideWidth
	if l.rightWidth < 0 {
		l.rightWidth = 0
	}

	// Two rows of gauges (4 lines each), the title and the panel border.
	l.gaugesHeight = gaugeRows*4 + 3
	l.logsHeight = availHeight - l.gaugesHeight
	if l.logsHeight < 6 {
		l.logsHeight = 6
	}

	l.logWidth = l.rightWidth / 2
	l.vpWidth = l.logWidth - 4 - 1 // border, padding and scrollbar
	l.vpHeight = l.logsHeight - 4  // border, title and margin
	if l.vpWidth < 0 {
		l.vpWidth = 0
	}
	if l.vpHeight < 1 {
		l.vpHeight = 1
	}
	return l
}

func (m *Model) resize() {
	l := m.layout()
	m.browser.setSize(l.windowWidth/3-4, l.windowHeight-7)
	m.txViewport.Width = l.vpWidth
	m.txViewport.Height = l.vpHeight
	m.rxViewport.Width = l.vpWidth
	m.rxViewport.Height = l.vpHeight
}

func (m Model) View() string {
	var content string

	windowWidth := m.width - 4
	windowHeight := m.height - 4

	if windowWidth < minWindowWidth || windowHeight < minWindowHeight {
		return styleScreenTooSmall.
			Width(m.width).
			Height(m.height).
			Render("Terminal window is too small.\nPlease resize.")
	}

	appTitle := styleAppTitle.Width(windowWidth).Render("AILERON " + m.version())

	switch m.screen {

	case screenSourceSelect:
		menuTitle := styleTitle.Render("Initial Conditions")

		cardForm := styleMenuItem.Render("Startup Form")
		cardLua := styleMenuItem.Render("Lua Scenario")
		if m.menuCursor == 0 {
			cardForm = styleMenuItemSelected.Render("Startup Form")
		} else {
			cardLua = styleMenuItemSelected.Render("Lua Scenario")
		}

		menu := []string{menuTitle, "\n", lipgloss.JoinHorizontal(lipgloss.Center, cardForm, cardLua)}
		if m.err != nil {
			menu = append(menu, "", styleError.Render("Error: "+m.err.Error()))
		}

		content = lipgloss.JoinVertical(lipgloss.Top,
			appTitle,
			lipgloss.Place(
				windowWidth, windowHeight-1,
				lipgloss.Center, lipgloss.Center,
				styleMenuContainer.Render(lipgloss.JoinVertical(lipgloss.Center, menu...)),
			),
		)

	case screenForm:
		title := styleTitle.MarginBottom(1).Render("Startup Form")
		panel := stylePanelTitled.
			BorderForeground(colorSecondary).
			Render(title + "\n" + m.form.View())

		hints := renderHints(
			"tab", "next field",
			"space", "toggle engine",
			"enter", "start",
			"esc", "back",
		)

		content = lipgloss.JoinVertical(lipgloss.Top,
			appTitle,
			lipgloss.Place(
				windowWidth, windowHeight-1,
				lipgloss.Center, lipgloss.Center,
				lipgloss.JoinVertical(lipgloss.Center, panel, "", hints),
			),
		)

	case screenFilePicker:
		content = m.viewFilePicker(appTitle, windowWidth, windowHeight)

	case screenConnecting:
		url, _ := m.cfg.ControlURL()
		status := m.spinner.View() + " Connecting to " + url
		if m.err != nil {
			status = styleError.Render("Error: " + m.err.Error())
		}

		content = lipgloss.Place(
			windowWidth, windowHeight,
			lipgloss.Center, lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center, appTitle, "\n", status),
		)

	case screenActive:
		content = m.viewActive(appTitle)
	}

	return styleWindow.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m Model) version() string {
	if m.opts.Version == "" {
		return "dev"
	}
	return m.opts.Version
}

func (m Model) viewFilePicker(appTitle string, windowWidth, windowHeight int) string {
	listWidth := windowWidth / 3
	previewWidth := windowWidth - listWidth
	panelHeight := windowHeight - 1

	browserColor := colorSecondary
	if m.browser.hasScenarios() {
		browserColor = colorSuccess
	}

	previewColor := colorSecondary
	if e, ok := m.browser.selected(); ok && !e.dir {
		if m.browser.selectedValid() {
			previewColor = colorSuccess
		} else {
			previewColor = colorError
		}
	}

	browserTitle := styleTitle.MarginBottom(1).Render("Select Scenario")
	browserView := stylePanelTitled.
		BorderForeground(browserColor).
		Width(listWidth - 4).
		Height(panelHeight).
		Render(browserTitle + "\n" + m.browser.View())

	contentHeight := panelHeight - 5 // border, title, margin and the ellipsis
	previewLines := strings.Split(m.browser.preview, "\n")
	if len(previewLines) > contentHeight && contentHeight > 1 {
		previewLines = append(previewLines[:contentHeight-1], "...")
	}
	preview := strings.Join(previewLines, "\n")
	if m.err != nil {
		preview = styleError.Render("Error: "+m.err.Error()) + "\n\n" + preview
	}

	previewTitle := styleTitle.MarginBottom(1).Render("Scenario Preview")
	previewView := stylePanelTitled.
		BorderForeground(previewColor).
		Width(previewWidth).
		Height(panelHeight).
		Render(previewTitle + "\n" + preview)

	return lipgloss.Place(
		windowWidth, windowHeight,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Top,
			appTitle,
			lipgloss.JoinHorizontal(lipgloss.Top, browserView, previewView),
		),
	)
}

func (m Model) viewActive(appTitle string) string {
	l := m.layout()

	// Left column: controls and the textual state
	cmd := m.commandOrDefault()
	controlsColor := colorSubtext
	if m.activeView == viewControls {
		controlsColor = colorSecondary
	}
	controls := stylePanelTitled.
		BorderForeground(controlsColor).
		Width(l.sideWidth - 4).
		Render(styleTitle.MarginBottom(1).Render("Controls") + "\n" +
			renderControls(cmd, m.lever, m.activeView == viewControls, m.state, l.sideWidth-4))

	status := stylePanelTitled.
		Width(l.sideWidth - 4).
		Render(styleTitle.MarginBottom(1).Render("State") + "\n" + renderStatus(m.state, m.hasState))

	leftColumn := lipgloss.JoinVertical(lipgloss.Top, controls, status)

	// Right column: instruments over the two telemetry logs
	readings := m.panelReadings()
	gauges := stylePanelTitled.
		Width(l.rightWidth - 4).
		Render(styleTitle.Render("Instruments") + "\n" + renderInstruments(readings))

	tx := m.renderLog("TX", m.txViewport, m.activeView == viewTX, l)
	rx := m.renderLog("RX", m.rxViewport, m.activeView == viewRX, l)
	rightColumn := lipgloss.JoinVertical(lipgloss.Top, gauges, lipgloss.JoinHorizontal(lipgloss.Top, tx, rx))

	topArea := lipgloss.JoinHorizontal(lipgloss.Top, leftColumn, rightColumn)

	var hints string
	if m.activeView == viewControls {
		hints = renderHints(
			"<tab>", "switch focus",
			"↑/↓", "lever",
			"←/→", "adjust",
			"H/L", "±10",
			"c", "center",
			"a", "arm",
			"q", "quit",
		)
	} else {
		hints = renderHints(
			"<tab>", "switch focus",
			"d", "mavlink detail",
			"e", "editor",
			"g", "top",
			"G", "bottom",
			"a", "arm",
			"q", "quit",
		)
	}

	footerStyle := lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(colorSubtext).
		Padding(0, 1)

	footer := footerStyle.
		Width(l.windowWidth - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, m.statusBar(), hints))

	return lipgloss.JoinVertical(lipgloss.Top, appTitle, topArea, footer)
}

func (m Model) renderLog(title string, vp viewport.Model, focused bool, l layout) string {
	color := colorSubtext
	if focused {
		color = colorSecondary
	}

	count := ""
	if m.telemetry != nil {
		dir := types.Inbound
		if title == "TX" {
			dir = types.Outbound
		}
		count = fmt.Sprintf(" %d/%d", m.telemetry.Log(dir).Len(), m.telemetry.Log(dir).Cap())
	}

	scrollbar := scrollbarTrack.Width(1).Render(renderScrollbar(vp, l.vpHeight))
	body := lipgloss.JoinHorizontal(lipgloss.Top, vp.View(), scrollbar)

	return stylePanelTitled.
		BorderForeground(color).
		Width(l.logWidth - 2).
		Height(l.logsHeight - 2).
		Render(styleTitle.MarginBottom(1).Render(title+count) + "\n" + body)
}

// statusBar shows channel health, counters, the joystick and the last
// transport error.
func (m Model) statusBar() string {
	sep := styleSubtext.Render(" • ")
	parts := []string{}

	if m.control != nil {
		stats := m.control.Stats()
		parts = append(parts,
			channelState("ws", m.control.IsOpen())+styleSubtext.Render(" "+m.control.State().String()),
			styleSubtext.Render(fmt.Sprintf("sent %d dropped %d", stats.Sent, stats.Dropped)),
		)
		malformed := stats.Malformed
		if m.telemetry != nil {
			malformed += m.telemetry.Stats().Malformed
		}
		if malformed > 0 {
			parts = append(parts, styleError.Render(fmt.Sprintf("malformed %d", malformed)))
		}
	}
	if m.telemetry != nil {
		parts = append(parts, channelState("telem", m.telemetry.IsOpen()))
	}

	if m.stick != nil && m.stick.device != nil {
		parts = append(parts, styleValue.Render("Joystick Connected: "+m.stick.device.Name()))
	} else if m.opts.NoJoystick {
		parts = append(parts, styleSubtext.Render("Joystick disabled"))
	} else {
		parts = append(parts, styleSubtext.Render("No joystick"))
	}

	if m.lastErr != nil {
		parts = append(parts, styleError.Render(fmt.Sprintf("error(%d): %s", m.errCount, session.Sanitize(m.lastErr.Error()))))
	}

	return strings.Join(parts, sep)
}

func channelState(name string, open bool) string {
	if open {
		return lipgloss.NewStyle().Foreground(colorSuccess).Render(name + " open")
	}
	return styleError.Render(name + " closed")
}

func renderHints(pairs ...string) string {
	keyStyle := lipgloss.NewStyle().Foreground(colorSecondary).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(colorSubtext)
	sep := descStyle.Render(" • ")

	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, keyStyle.Render(pairs[i])+descStyle.Render(" "+pairs[i+1]))
	}
	return strings.Join(parts, sep)
}

func (m Model) commandOrDefault() types.ControlCommand {
	if m.control == nil {
		return types.Neutral(types.DefaultSessionConfig().Throttle)
	}
	return m.control.Command()
}

func (m Model) panelReadings() instrument.Readings {
	if m.panel == nil {
		return instrument.Readings{}
	}
	return m.panel.Readings()
}
