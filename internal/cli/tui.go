package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pixclock/pkg/pipeline"
)

var (
	previewStatusStyle = lipgloss.NewStyle().Foreground(colorLabel)
	previewErrorStyle  = lipgloss.NewStyle().Foreground(colorFail)
	previewFrameStyle  = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorMuted)
)

// =============================================================================
// PreviewModel - live terminal preview
// =============================================================================

type tickMsg time.Time

// frameMsg carries the outcome of one render pass.
type frameMsg struct {
	res pipeline.Result
	err error
}

// PreviewModel is the bubbletea model for preview --watch. It ticks the
// runner at the render cadence and draws each frame with half blocks.
type PreviewModel struct {
	ctx    context.Context
	runner *pipeline.Runner
	now    func() time.Time
	every  time.Duration

	frame   string
	status  string
	err     error
	renders int
}

func newPreviewModel(ctx context.Context, runner *pipeline.Runner, now func() time.Time, every time.Duration) PreviewModel {
	return PreviewModel{ctx: ctx, runner: runner, now: now, every: every}
}

func (m PreviewModel) Init() tea.Cmd {
	return m.render()
}

func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, m.render()
	case frameMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.renders++
		m.frame = halfBlocks(msg.res.Frame.RGBA())
		m.status = describeResult(msg.res)
		return m, tea.Tick(m.every, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	return m, nil
}

func (m PreviewModel) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("pixclock preview"))
	b.WriteString("  ")
	b.WriteString(styleMuted.Render("q quit"))
	b.WriteString("\n")
	if m.frame != "" {
		b.WriteString(previewFrameStyle.Render(strings.TrimSuffix(m.frame, "\n")))
		b.WriteString("\n")
	}
	b.WriteString(previewStatusStyle.Render(m.status))
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(previewErrorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n")
	return b.String()
}

// render runs one tick off the UI goroutine.
func (m PreviewModel) render() tea.Cmd {
	return func() tea.Msg {
		res, err := m.runner.Tick(m.ctx, m.now())
		return frameMsg{res: res, err: err}
	}
}

// describeResult summarises a tick for the status line.
func describeResult(res pipeline.Result) string {
	var parts []string
	if len(res.Due) > 0 {
		due := make([]string, len(res.Due))
		for i, id := range res.Due {
			due[i] = string(id)
		}
		parts = append(parts, "refreshed "+strings.Join(due, ","))
	}
	if res.Dropped && res.Payload.Len() == 0 {
		parts = append(parts, "too large to send")
	} else {
		parts = append(parts, statsLine(res.Payload.Len(), res.Payload.Level))
	}
	failed := make([]string, 0, len(res.Failed))
	for id := range res.Failed {
		failed = append(failed, string(id))
	}
	slices.Sort(failed)
	if len(failed) > 0 {
		parts = append(parts, fmt.Sprintf("failed %s", strings.Join(failed, ",")))
	}
	return strings.Join(parts, " · ")
}
