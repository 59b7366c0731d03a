package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/searchbridge/internal/ingest"
)

// TUIRenderer draws a live panel with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	model   *ingestModel
	program *tea.Program
	done    chan struct{}
}

// NewTUIRenderer fails when the output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}
	m := newIngestModel(cfg.Source)
	if cfg.NoColor || DetectNoColor() {
		m.styles = NoColorStyles()
	}
	return &TUIRenderer{cfg: cfg, model: m, done: make(chan struct{})}, nil
}

// Start implements Renderer. The program stops with ctx.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		return nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// OnQuit registers the function called when the user quits with q or
// ctrl+c. Call it before Start.
func (r *TUIRenderer) OnQuit(cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.model.onQuit = cancel
}

// Update implements Renderer.
func (r *TUIRenderer) Update(s ingest.ProgressSnapshot) {
	r.send(snapshotMsg(s))
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(res ingest.Result) {
	r.send(completeMsg(res))
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Stop implements Renderer. It waits briefly for the final frame.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p == nil {
		return nil
	}
	p.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

type (
	snapshotMsg ingest.ProgressSnapshot
	completeMsg ingest.Result
)

type ingestModel struct {
	source   string
	snap     ingest.ProgressSnapshot
	result   *ingest.Result
	width    int
	quitting bool
	onQuit   context.CancelFunc

	spinner spinner.Model
	bar     progress.Model
	styles  Styles
}

func newIngestModel(source string) *ingestModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	return &ingestModel{
		source:  source,
		width:   80,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorLime),
			progress.WithWidth(50),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

func (m *ingestModel) Init() tea.Cmd { return m.spinner.Tick }

func (m *ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-20, 20)
	case snapshotMsg:
		m.snap = ingest.ProgressSnapshot(msg)
	case completeMsg:
		res := ingest.Result(msg)
		m.result = &res
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ingestModel) View() string {
	if m.result != nil {
		return m.renderComplete()
	}
	if m.quitting {
		return "Cancelled.\n"
	}

	width := max(m.width-4, 40)
	divider := m.styles.Dim.Render(strings.Repeat("─", width))
	body := strings.Join([]string{
		m.renderStages(),
		divider,
		m.renderProgress(),
		m.renderCounts(),
	}, "\n")

	title := "searchbridge ingest"
	if m.source != "" {
		title += " • " + truncatePath(m.source, width-len(title)-3)
	}
	panel := m.styles.Panel.Width(width).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, m.styles.Header.Render(title), panel) + "\n" + m.renderStatus()
}

var pipeline = []ingest.Stage{
	ingest.StageScanning,
	ingest.StageParsing,
	ingest.StageIndexing,
	ingest.StageCommitting,
}

func (m *ingestModel) renderStages() string {
	current := -1
	for i, s := range pipeline {
		if string(s) == m.snap.Stage {
			current = i
		}
	}
	if m.snap.Status == string(ingest.StatusReady) || m.snap.Status == string(ingest.StatusWatching) {
		current = len(pipeline)
	}

	parts := make([]string, len(pipeline))
	for i, s := range pipeline {
		name := stageLabel(string(s))
		switch {
		case i < current:
			parts[i] = m.styles.Success.Render("● " + name)
		case i == current:
			parts[i] = m.styles.Active.Render(m.spinner.View() + " " + name)
		default:
			parts[i] = m.styles.Dim.Render("○ " + name)
		}
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *ingestModel) renderProgress() string {
	if m.snap.FilesTotal == 0 {
		return m.spinner.View() + " " + m.styles.Dim.Render("Scanning for documents...")
	}
	pct := m.snap.ProgressPct / 100
	return fmt.Sprintf("%s  %s", m.bar.ViewAs(pct), m.styles.Active.Render(fmt.Sprintf("%3.0f%%", pct*100)))
}

func (m *ingestModel) renderCounts() string {
	s := m.snap
	line := fmt.Sprintf("%d / %d files  •  %d docs  •  %d commits", s.FilesProcessed, s.FilesTotal, s.DocsIndexed, s.Commits)
	if s.LastOpstamp != "" {
		line += "  •  opstamp " + s.LastOpstamp
	}
	line += "  •  " + formatDuration(time.Duration(s.ElapsedSeconds)*time.Second)
	return m.styles.Label.Render(line)
}

func (m *ingestModel) renderStatus() string {
	var parts []string
	switch m.snap.Status {
	case string(ingest.StatusWatching):
		parts = append(parts, m.styles.Success.Render("watching for changes"))
	case string(ingest.StatusError):
		parts = append(parts, m.styles.Error.Render("✗ "+m.snap.ErrorMessage))
	}
	if m.snap.DocsRejected > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d rejected", m.snap.DocsRejected)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *ingestModel) renderComplete() string {
	res := m.result
	lines := []string{
		m.styles.Success.Render("✓ Ingest complete"),
		"",
		fmt.Sprintf("%s    %s", m.styles.Label.Render("Files:"), m.styles.Active.Render(fmt.Sprint(res.Files))),
		fmt.Sprintf("%s     %s", m.styles.Label.Render("Docs:"), m.styles.Active.Render(fmt.Sprint(res.Docs))),
		fmt.Sprintf("%s  %s", m.styles.Label.Render("Opstamp:"), m.styles.Active.Render(fmt.Sprint(res.Opstamp))),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Duration:"), m.styles.Active.Render(formatDuration(res.Duration))),
	}
	if res.Rejected > 0 {
		lines = append(lines, "", m.styles.Warning.Render(fmt.Sprintf("⚠ %d documents rejected", res.Rejected)))
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorLime)).
		Padding(1, 2).
		Width(max(m.width-4, 40))
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

var _ Renderer = (*TUIRenderer)(nil)
