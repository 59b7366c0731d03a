// Package ui renders ingest progress for the index command: a live
// bubbletea panel on interactive terminals and one line per change
// everywhere else.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/searchbridge/internal/ingest"
)

// Renderer displays ingest progress.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Update shows the latest progress.
	Update(s ingest.ProgressSnapshot)

	// Complete shows the summary of a finished run.
	Complete(res ingest.Result)

	// Stop tears the renderer down.
	Stop() error
}

// Config configures a renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	// Source is the ingested path, shown in the header.
	Source string
}

// NewRenderer picks the TUI for terminals and the plain renderer for
// pipes, CI and --plain.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DetectCI reports whether a common CI variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}

// Track feeds snapshots of p to r every interval until ctx is done.
func Track(ctx context.Context, p *ingest.Progress, r Renderer, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		r.Update(p.Snapshot())
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		m, s := int(d.Minutes()), int(d.Seconds())%60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// truncatePath keeps the tail of path within max bytes.
func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	if max <= 3 {
		return "..."
	}
	cut := path[len(path)-(max-3):]
	if i := strings.IndexByte(cut, '/'); i >= 0 && i < len(cut)-1 {
		cut = cut[i:]
	}
	return "..." + cut
}

func stageLabel(stage string) string {
	switch ingest.Stage(stage) {
	case ingest.StageScanning:
		return "SCAN"
	case ingest.StageParsing:
		return "PARSE"
	case ingest.StageIndexing:
		return "INDEX"
	case ingest.StageCommitting:
		return "COMMIT"
	default:
		return strings.ToUpper(stage)
	}
}
