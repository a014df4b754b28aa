// Package tui renders the progress of a marketplace task on a terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

// ErrAborted is returned when the user quits before the task finishes.
var ErrAborted = errors.New("aborted")

const maxBarWidth = 60

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// WaitFunc blocks until a task finishes, reporting each snapshot.
type WaitFunc func(ctx context.Context, onProgress wb.ProgressFunc) (*wb.TaskSnapshot, error)

type snapshotMsg struct{ snap *wb.TaskSnapshot }

type doneMsg struct {
	snap *wb.TaskSnapshot
	err  error
}

// Model is the bubbletea model of one task wait.
type Model struct {
	title   string
	bar     progress.Model
	updates <-chan tea.Msg
	started time.Time
	now     func() time.Time

	last    *wb.TaskSnapshot
	polls   int
	done    bool
	aborted bool
	err     error
}

// NewModel creates a model fed by updates.
func NewModel(title string, updates <-chan tea.Msg) Model {
	return Model{
		title:   title,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		updates: updates,
		started: time.Now(),
		now:     time.Now,
	}
}

// Init waits for the first update.
func (m Model) Init() tea.Cmd {
	return waitFor(m.updates)
}

// Update consumes snapshots, the final result and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-20, maxBarWidth), 10)
	case snapshotMsg:
		m.last = msg.snap
		m.polls++
		return m, waitFor(m.updates)
	case doneMsg:
		m.done = true
		m.err = msg.err
		if msg.snap != nil {
			m.last = msg.snap
		}
		return m, tea.Quit
	}
	return m, nil
}

// View renders the title, bar and status line.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n  ")

	fraction := 0.0
	status := "waiting"
	if m.last != nil {
		fraction = m.last.ProgressPercent() / 100
		status = m.last.Status
	}
	if m.done && m.err == nil {
		fraction = 1
	}
	b.WriteString(m.bar.ViewAs(fraction))
	b.WriteString("\n\n  ")

	switch {
	case m.done && m.err != nil:
		b.WriteString(errStyle.Render("✗ " + m.err.Error()))
	case m.done:
		b.WriteString(okStyle.Render("✓ " + status))
	default:
		b.WriteString(status)
	}

	line := fmt.Sprintf("  polls %d · %s", m.polls, m.now().Sub(m.started).Round(time.Second))
	if m.last != nil && m.last.TotalItems > 0 {
		line += fmt.Sprintf(" · %d/%d items", m.last.ProcessedItems, m.last.TotalItems)
	}
	if m.last != nil && m.last.ErrorsCount > 0 {
		line += fmt.Sprintf(" · %d errors", m.last.ErrorsCount)
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(line))
	b.WriteString("\n")
	return b.String()
}

func waitFor(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return doneMsg{err: ErrAborted}
		}
		return msg
	}
}

// Run shows a progress bar on out while wait runs. Pressing q or ctrl+c
// cancels the wait and returns ErrAborted.
func Run(ctx context.Context, out io.Writer, title string, wait WaitFunc) (*wb.TaskSnapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan tea.Msg, 8)
	go func() {
		snap, err := wait(ctx, func(s *wb.TaskSnapshot) {
			select {
			case updates <- snapshotMsg{snap: s}:
			case <-ctx.Done():
			}
		})
		select {
		case updates <- doneMsg{snap: snap, err: err}:
		case <-ctx.Done():
		}
	}()

	final, err := tea.NewProgram(NewModel(title, updates), tea.WithOutput(out)).Run()
	if err != nil {
		return nil, fmt.Errorf("running progress view: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model %T", final)
	}
	if m.aborted {
		return m.last, ErrAborted
	}
	return m.last, m.err
}
