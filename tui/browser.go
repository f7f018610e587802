package tui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/samaelod/aileron/scenario"
)

const scenarioExt = ".lua"

func isScenarioFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), scenarioExt)
}

// scenarioEntry is one row of the browser: a directory or a Lua scenario.
type scenarioEntry struct {
	name string
	path string
	dir  bool
}

func (e scenarioEntry) FilterValue() string { return e.name }

// scenarioSummary is a parsed scenario file, kept so moving the cursor does
// not rerun the Lua.
type scenarioSummary struct {
	scenario *scenario.Scenario
	source   []byte
	err      error
}

type summaryCache map[string]scenarioSummary

func (c summaryCache) get(path string) scenarioSummary {
	if s, ok := c[path]; ok {
		return s
	}
	var s scenarioSummary
	s.source, s.err = os.ReadFile(path)
	if s.err == nil {
		s.scenario, s.err = scenario.Read(path)
	}
	c[path] = s
	return s
}

type scenarioDelegate struct {
	cache summaryCache
}

func (d scenarioDelegate) Height() int                               { return 1 }
func (d scenarioDelegate) Spacing() int                              { return 0 }
func (d scenarioDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d scenarioDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	e, ok := item.(scenarioEntry)
	if !ok {
		return
	}

	label := e.name
	style := lipgloss.NewStyle().Foreground(colorPrimary)
	if e.dir {
		label += "/"
		style = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	} else if s, seen := d.cache[e.path]; seen && s.err != nil {
		style = lipgloss.NewStyle().Foreground(colorError)
	}

	if index == m.Index() {
		fmt.Fprint(w, styleSelected.Render("> "+label))
		return
	}
	fmt.Fprint(w, style.Render("  "+label))
}

// scenarioBrowser lists directories and Lua scenarios and previews the
// starting conditions of the one under the cursor.
type scenarioBrowser struct {
	list    list.Model
	dir     string
	preview string
	height  int
	err     error
	cache   summaryCache
}

func newScenarioBrowser() scenarioBrowser {
	cwd, _ := os.Getwd()
	return newScenarioBrowserIn(cwd)
}

func newScenarioBrowserIn(dir string) scenarioBrowser {
	cache := summaryCache{}
	l := list.New(nil, scenarioDelegate{cache: cache}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	b := scenarioBrowser{list: l, cache: cache}
	b.chdir(dir)
	return b
}

func (b *scenarioBrowser) chdir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		b.err = err
		return
	}
	b.dir = dir
	b.err = nil

	var items []list.Item
	if parent := filepath.Dir(dir); parent != dir {
		items = append(items, scenarioEntry{name: "..", path: parent, dir: true})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !e.IsDir() && !isScenarioFile(e.Name()) {
			continue
		}
		items = append(items, scenarioEntry{
			name: e.Name(),
			path: filepath.Join(dir, e.Name()),
			dir:  e.IsDir(),
		})
	}

	b.list.SetItems(items)
	b.list.ResetSelected()
	b.refreshPreview()
}

func (b scenarioBrowser) hasScenarios() bool {
	for _, item := range b.list.Items() {
		if e, ok := item.(scenarioEntry); ok && !e.dir {
			return true
		}
	}
	return false
}

func (b scenarioBrowser) selected() (scenarioEntry, bool) {
	e, ok := b.list.SelectedItem().(scenarioEntry)
	return e, ok
}

// selectedValid reports whether the entry under the cursor is a scenario
// that parsed.
func (b scenarioBrowser) selectedValid() bool {
	e, ok := b.selected()
	if !ok || e.dir {
		return false
	}
	return b.cache.get(e.path).err == nil
}

func (b *scenarioBrowser) refreshPreview() {
	e, ok := b.selected()
	switch {
	case !ok:
		b.preview = "No scenarios here."
		return
	case e.dir:
		b.preview = fmt.Sprintf("Directory: %s", e.name)
		return
	}

	s := b.cache.get(e.path)
	var sb strings.Builder
	if s.err != nil {
		fmt.Fprintf(&sb, "Invalid scenario: %v\n", s.err)
	} else {
		if s.scenario.Name != "" {
			fmt.Fprintf(&sb, "%s\n", s.scenario.Name)
		}
		if s.scenario.Description != "" {
			fmt.Fprintf(&sb, "%s\n", s.scenario.Description)
		}
		sc := s.scenario.Session
		fmt.Fprintf(&sb, "Altitude %.0f ft  Speed %.0f kts  Heading %.0f°\n", sc.Altitude, sc.Speed, sc.Heading)
		fmt.Fprintf(&sb, "Roll %.1f°  Pitch %.1f°  Throttle %d%%  Engine %s\n", sc.Roll, sc.Pitch, sc.Throttle, onOff(sc.Engine))
	}
	if len(s.source) > 0 {
		sb.WriteString("\n")
		sb.Write(s.source)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if limit := b.height; limit > 0 && len(lines) > limit {
		lines = append(lines[:limit], "... (truncated)")
	}
	b.preview = strings.Join(lines, "\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (b scenarioBrowser) Update(msg tea.Msg) (scenarioBrowser, tea.Cmd) {
	var cmd tea.Cmd
	b.list, cmd = b.list.Update(msg)

	if msg, ok := msg.(tea.KeyMsg); ok && b.list.FilterState() != list.Filtering {
		switch msg.String() {
		case "enter":
			if e, ok := b.selected(); ok && e.dir {
				b.chdir(e.path)
				return b, cmd
			}
		case "backspace", "left":
			if parent := filepath.Dir(b.dir); parent != b.dir {
				b.chdir(parent)
				return b, cmd
			}
		}
	}

	b.refreshPreview()
	return b, cmd
}

func (b *scenarioBrowser) setSize(width, height int) {
	b.height = height
	b.list.SetSize(width, height)
	b.refreshPreview()
}

func (b scenarioBrowser) View() string {
	if b.err != nil {
		return styleError.Render(b.err.Error()) + "\n" + b.list.View()
	}
	return b.list.View()
}
