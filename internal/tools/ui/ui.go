package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle  = lipgloss.NewStyle().Faint(true)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg struct{}

type doneMsg struct {
	details []string
	err     error
}

type model struct {
	title   string
	frame   int
	done    bool
	details []string
	err     error
	result  chan doneMsg
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitForResult())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) waitForResult() tea.Cmd {
	return func() tea.Msg { return <-m.result }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	if m.done {
		if m.err != nil {
			b.WriteString(failStyle.Render("✗") + " " + titleStyle.Render(m.title) + "\n")
		} else {
			b.WriteString(okStyle.Render("✓") + " " + titleStyle.Render(m.title) + "\n")
		}
		for _, d := range m.details {
			b.WriteString("  " + detailStyle.Render(d) + "\n")
		}
		if m.err != nil {
			b.WriteString("  " + failStyle.Render(m.err.Error()) + "\n")
		}
		return b.String()
	}
	b.WriteString(spinnerStyle.Render(spinnerFrames[m.frame]) + " " + titleStyle.Render(m.title) + "\n")
	return b.String()
}

// Run executes fn under an animated spinner and returns its details and
// error once it finishes. Ctrl-C cancels the work.
func Run(title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	result := make(chan doneMsg, 1)
	go func() {
		details, err := fn(ctx)
		result <- doneMsg{details: details, err: err}
	}()

	final, err := tea.NewProgram(model{title: title, result: result}).Run()
	if err != nil {
		return nil, fmt.Errorf("run spinner ui: %w", err)
	}
	m, ok := final.(model)
	if !ok {
		return nil, fmt.Errorf("unexpected ui model type %T", final)
	}
	return m.details, m.err
}
