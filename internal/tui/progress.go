package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/minicodemonkey/dxrender/internal/mix"
	"github.com/minicodemonkey/dxrender/internal/render"
)

const progressBarWidth = 30

// ProgressMsg carries a progress report from the mix engine.
type ProgressMsg mix.Progress

// DoneMsg is sent when the render finishes.
type DoneMsg struct {
	Summary *render.Summary
	Err     error
}

// RenderFunc performs a render, reporting progress through the callback.
type RenderFunc func(ctx context.Context, progress func(mix.Progress)) (*render.Summary, error)

// ProgressModel is the Bubble Tea model shown while a render runs.
type ProgressModel struct {
	title     string
	run       RenderFunc
	ctx       context.Context
	cancel    context.CancelFunc
	updates   chan mix.Progress
	startTime time.Time
	width     int

	stage    mix.Stage
	done     int
	total    int
	finished bool
	canceled bool
	summary  *render.Summary
	err      error
}

// NewProgressModel creates a progress view for run. The title is usually the
// chart file name.
func NewProgressModel(ctx context.Context, title string, run RenderFunc) *ProgressModel {
	ctx, cancel := context.WithCancel(ctx)
	return &ProgressModel{
		title:     title,
		run:       run,
		ctx:       ctx,
		cancel:    cancel,
		updates:   make(chan mix.Progress, 64),
		startTime: time.Now(),
		width:     80,
	}
}

// Init starts the render.
func (m *ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.runRender(), m.listenForProgress())
}

// runRender runs the render in a goroutine and returns a command that signals completion.
func (m *ProgressModel) runRender() tea.Cmd {
	return func() tea.Msg {
		summary, err := m.run(m.ctx, m.report)
		close(m.updates)
		return DoneMsg{Summary: summary, Err: err}
	}
}

// report is called from mix workers. Only the latest state matters, so a
// report is dropped when the view is behind.
func (m *ProgressModel) report(p mix.Progress) {
	select {
	case m.updates <- p:
	default:
	}
}

// listenForProgress listens for progress reports and returns them as messages.
func (m *ProgressModel) listenForProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.updates
		if !ok {
			return nil
		}
		return ProgressMsg(p)
	}
}

// Update handles messages and updates the model.
func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.canceled = true
			m.cancel()
		}
		return m, nil

	case ProgressMsg:
		// Workers finish out of order; never move a stage backwards.
		if msg.Stage > m.stage || (msg.Stage == m.stage && msg.Done >= m.done) {
			m.stage = msg.Stage
			m.done = msg.Done
			m.total = msg.Total
		}
		return m, m.listenForProgress()

	case DoneMsg:
		m.finished = true
		m.summary = msg.Summary
		m.err = msg.Err
		m.cancel()
		return m, tea.Quit
	}

	return m, nil
}

// View renders the progress view.
func (m *ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Rendering " + m.title))
	b.WriteString("\n")

	if m.finished {
		b.WriteString(m.renderResult())
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.renderStage(mix.StageDecode, "Decoding samples"))
	b.WriteString("\n")
	b.WriteString(m.renderStage(mix.StageMix, "Mixing tracks"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("  elapsed %s", formatDuration(time.Since(m.startTime)))))
	b.WriteString("\n")
	if m.canceled {
		b.WriteString(WarningStyle.Render("  canceling..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *ProgressModel) renderStage(stage mix.Stage, label string) string {
	switch {
	case stage < m.stage:
		return fmt.Sprintf("  %s %s", progressBarFillStyle.Render(IconDone), label)
	case stage > m.stage:
		return fmt.Sprintf("  %s %s", progressBarEmptyStyle.Render(IconPending), SubtitleStyle.Render(label))
	}
	return fmt.Sprintf("  %s %s %s", labelStyle.Render(IconActive), label, renderProgressBar(m.done, m.total, min(progressBarWidth, max(m.width-40, 10))))
}

func (m *ProgressModel) renderResult() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("  %s %v", IconFailed, m.err))
	}
	s := m.summary
	if s == nil {
		return ""
	}
	return SuccessStyle.Render(fmt.Sprintf("  %s %d events, %s of audio", IconDone, s.Playable, formatDuration(s.Duration))) +
		SubtitleStyle.Render(fmt.Sprintf(" (%s)", formatDuration(time.Since(m.startTime))))
}

// Summary returns the finished render's summary and error.
func (m *ProgressModel) Summary() (*render.Summary, error) {
	if !m.finished {
		return nil, context.Canceled
	}
	return m.summary, m.err
}

// renderProgressBar renders a bar showing done out of total.
func renderProgressBar(done, total, width int) string {
	var fraction float64
	if total > 0 {
		fraction = float64(done) / float64(total)
	}
	fraction = min(max(fraction, 0), 1)

	filled := int(float64(width) * fraction)
	bar := progressBarFillStyle.Render(strings.Repeat("█", filled)) +
		progressBarEmptyStyle.Render(strings.Repeat("░", width-filled))

	return fmt.Sprintf("%s %s", bar, ProgressPercentStyle.Render(fmt.Sprintf("%3.0f%% %d/%d", fraction*100, done, total)))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// RunProgress runs a render behind the progress view, drawing to out. It
// returns once the render has finished or the user canceled it.
func RunProgress(ctx context.Context, out io.Writer, title string, run RenderFunc) (*render.Summary, error) {
	model := NewProgressModel(ctx, title, run)
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(*ProgressModel).Summary()
}
