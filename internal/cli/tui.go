package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/channelkit/channelkit/pkg/platform"
)

// followLogLines is how many trailing interpreter log lines the TUI shows.
const followLogLines = 12

// followPollInterval is how often the TUI polls run state and logs.
const followPollInterval = 2 * time.Second

var followFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// followRunTUI runs the interactive run-following view until the run
// reaches a terminal state or the user quits.
func followRunTUI(ctx context.Context, client *platform.Client, id string) error {
	m := newFollowModel(ctx, client, id)
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}

	fm := final.(followModel)
	if fm.err != nil {
		return fm.err
	}
	if fm.run == nil || !fm.run.Done() {
		printWarning("Stopped following run %s; it is still running", id)
		printNextStep("Re-attach", "channelkit run --attach "+id)
		return nil
	}
	return reportFinal(fm.run)
}

// followMsg carries one poll result into the model.
type followMsg struct {
	run    *platform.Run
	logs   string
	offset int64
	err    error
}

// frameMsg advances the spinner animation.
type frameMsg time.Time

// followModel is the bubbletea model for run following.
type followModel struct {
	ctx    context.Context
	client *platform.Client
	id     string

	run    *platform.Run
	lines  []string
	offset int64
	err    error

	frame int
	start time.Time
}

func newFollowModel(ctx context.Context, client *platform.Client, id string) followModel {
	return followModel{
		ctx:    ctx,
		client: client,
		id:     id,
		start:  time.Now(),
	}
}

func (m followModel) Init() tea.Cmd {
	return tea.Batch(m.poll, frameTick())
}

func (m followModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case frameMsg:
		m.frame++
		return m, frameTick()

	case followMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.run = msg.run
		m.offset = msg.offset
		m.lines = appendLogLines(m.lines, msg.logs)
		if m.run.Done() {
			return m, tea.Quit
		}
		return m, tea.Tick(followPollInterval, func(time.Time) tea.Msg {
			return m.poll()
		})
	}
	return m, nil
}

func (m followModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Run " + m.id))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q to stop following (the run keeps going)"))
	b.WriteString("\n\n")

	status := "submitting"
	if m.run != nil {
		status = m.run.Status
	}
	icon := styleIconSpinner.Render(followFrames[m.frame%len(followFrames)])
	if m.run != nil && m.run.Done() {
		icon = statusIcon(m.run.Status)
	}
	elapsed := time.Since(m.start).Round(time.Second)
	b.WriteString(fmt.Sprintf("%s %s %s\n", icon, StyleHighlight.Render(status),
		StyleDim.Render(elapsed.String())))

	if len(m.lines) > 0 {
		b.WriteString("\n")
		for _, line := range m.lines {
			b.WriteString("  " + StyleDim.Render(line) + "\n")
		}
	}
	return b.String()
}

// poll fetches the run state and any new log output.
func (m followModel) poll() tea.Msg {
	run, err := m.client.GetRun(m.ctx, m.id)
	if err != nil {
		return followMsg{err: err}
	}
	text, next, err := m.client.RunLogs(m.ctx, m.id, m.offset)
	if err != nil {
		// Logs are best effort; status alone still renders.
		return followMsg{run: run, offset: m.offset}
	}
	return followMsg{run: run, logs: text, offset: next}
}

func frameTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// appendLogLines merges new log text into the tail window.
func appendLogLines(lines []string, text string) []string {
	if text == "" {
		return lines
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		lines = append(lines, line)
	}
	if len(lines) > followLogLines {
		lines = lines[len(lines)-followLogLines:]
	}
	return lines
}

func statusIcon(status string) string {
	switch status {
	case platform.RunSucceeded:
		return styleIconSuccess.Render(iconSuccess)
	case platform.RunFailed:
		return styleIconError.Render(iconError)
	default:
		return styleIconWarning.Render(iconWarning)
	}
}
