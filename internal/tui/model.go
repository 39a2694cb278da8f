// Package tui renders the review loop's snapshots in the terminal and
// forwards the reviewer's keys back to the loop.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Strob0t/patchpal/internal/domain/patch"
	"github.com/Strob0t/patchpal/internal/service"
)

// SnapshotMsg carries a fresh view of the review loop.
type SnapshotMsg service.Snapshot

// chromeLines is the number of rows taken by the title, metadata, spacer
// and help lines.
const chromeLines = 4

// Model is the Bubbletea model for the reviewer display. It never touches
// broker state; keys go to the loop through press.
type Model struct {
	width, height int

	snap service.Snapshot
	keys KeyMap
	help help.Model

	press   func(service.Key) bool
	dropped int
}

// New creates a model forwarding keys via press, which must not block.
func New(press func(service.Key) bool) *Model {
	h := help.New()
	h.ShowAll = false
	return &Model{
		keys:  DefaultKeyMap(),
		help:  h,
		press: press,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.SetWindowTitle("patchpal")
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case SnapshotMsg:
		m.snap = service.Snapshot(msg)
		if m.snap.Exiting {
			return m, tea.Quit
		}

	case tea.KeyMsg:
		for _, c := range m.keys.commands() {
			if key.Matches(msg, c.binding) {
				if m.press != nil && !m.press(c.key) {
					m.dropped++
				}
				break
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	if !m.snap.HasActive {
		b.WriteString(titleStyle.Render("patchpal: waiting for patches..."))
		b.WriteString("\n\n\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	b.WriteString(titleStyle.Render(m.title()))
	b.WriteString("\n")
	if m.snap.HasMetadata {
		b.WriteString(metadataStyle.Render(m.snap.ActiveMetadata))
	} else {
		b.WriteString(mutedStyle.Render("(no metadata)"))
	}
	b.WriteString("\n")

	rows := m.body()
	if limit := m.height - chromeLines; m.height > 0 && limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for _, r := range rows {
		b.WriteString(r)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) title() string {
	s := m.snap
	return fmt.Sprintf("Review %s  %d file(s)  +%d -%d  %d pending",
		shortID(s.ActiveID), s.ActiveFiles, s.Added, s.Removed, s.Pending)
}

// body renders the active diff. Scroll counts diff lines; file and hunk
// headers ride along with the first line shown from them.
func (m *Model) body() []string {
	set := m.snap.Patch
	if set == nil {
		return nil
	}

	skip := m.snap.Scroll
	var rows []string
	for _, f := range set.Files {
		header := fileStyle.Render(fmt.Sprintf("From %s To %s", f.OldPath, f.NewPath))
		for _, h := range f.Hunks {
			hunk := hunkStyle.Render(fmt.Sprintf("@@ -%d,%d +%d,%d @@ %s",
				h.OldStart, h.OldLines, h.NewStart, h.NewLines, h.Section))
			for _, l := range h.Lines {
				if skip > 0 {
					skip--
					continue
				}
				if header != "" {
					rows = append(rows, header)
					header = ""
				}
				if hunk != "" {
					rows = append(rows, hunk)
					hunk = ""
				}
				rows = append(rows, renderLine(l))
			}
		}
	}
	return rows
}

func renderLine(l patch.Line) string {
	switch l.Kind {
	case patch.LineAdded:
		return addedStyle.Render("+" + l.Text)
	case patch.LineRemoved:
		return removedStyle.Render("-" + l.Text)
	default:
		return contextStyle.Render(" " + l.Text)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
