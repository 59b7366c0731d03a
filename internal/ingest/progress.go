package ingest

import (
	"sync"
	"time"
)

// Status is the overall state of an ingest run.
type Status string

const (
	// StatusIngesting indicates documents are still being loaded.
	StatusIngesting Status = "ingesting"
	// StatusReady indicates the run finished and its documents are committed.
	StatusReady Status = "ready"
	// StatusWatching indicates the initial load finished and new files are
	// picked up as they appear.
	StatusWatching Status = "watching"
	// StatusError indicates the run stopped on an error.
	StatusError Status = "error"
)

// Stage is the current phase of an ingest run.
type Stage string

const (
	StageScanning   Stage = "scanning"
	StageParsing    Stage = "parsing"
	StageIndexing   Stage = "indexing"
	StageCommitting Stage = "committing"
)

// ProgressSnapshot is an immutable copy of ingest progress.
type ProgressSnapshot struct {
	Status         string  `json:"status"`
	Stage          string  `json:"stage"`
	FilesTotal     int     `json:"files_total"`
	FilesProcessed int     `json:"files_processed"`
	DocsIndexed    int     `json:"docs_indexed"`
	DocsRejected   int     `json:"docs_rejected"`
	Commits        int     `json:"commits"`
	LastOpstamp    string  `json:"last_opstamp,omitempty"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// Progress tracks an ingest run. It is safe for concurrent use.
type Progress struct {
	mu sync.RWMutex

	status         Status
	stage          Stage
	filesTotal     int
	filesProcessed int
	docsIndexed    int
	docsRejected   int
	commits        int
	lastOpstamp    string
	startTime      time.Time
	errorMessage   string
}

// NewProgress creates a tracker in the scanning stage.
func NewProgress() *Progress {
	return &Progress{
		status:    StatusIngesting,
		stage:     StageScanning,
		startTime: time.Now(),
	}
}

// SetStage moves the run to stage.
func (p *Progress) SetStage(stage Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = stage
}

// AddFiles grows the number of files the run will process.
func (p *Progress) AddFiles(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filesTotal += n
}

// FileDone records one processed file.
func (p *Progress) FileDone() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filesProcessed++
}

// DocIndexed records an accepted document.
func (p *Progress) DocIndexed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docsIndexed++
}

// DocRejected records a document the index refused.
func (p *Progress) DocRejected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docsRejected++
}

// Committed records a successful commit and its opstamp.
func (p *Progress) Committed(opstamp string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commits++
	p.lastOpstamp = opstamp
}

// SetError marks the run as failed.
func (p *Progress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StatusError
	p.errorMessage = message
}

// SetStatus sets the run status.
func (p *Progress) SetStatus(s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}

// Snapshot returns a copy of the current progress.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var pct float64
	if p.filesTotal > 0 {
		pct = float64(p.filesProcessed) / float64(p.filesTotal) * 100.0
	}
	return ProgressSnapshot{
		Status:         string(p.status),
		Stage:          string(p.stage),
		FilesTotal:     p.filesTotal,
		FilesProcessed: p.filesProcessed,
		DocsIndexed:    p.docsIndexed,
		DocsRejected:   p.docsRejected,
		Commits:        p.commits,
		LastOpstamp:    p.lastOpstamp,
		ProgressPct:    pct,
		ElapsedSeconds: int(time.Since(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
