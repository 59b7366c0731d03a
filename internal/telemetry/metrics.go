// Package telemetry keeps in-memory statistics about the queries an MCP
// server answers. Nothing is persisted or reported elsewhere.
package telemetry

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Kind is the tool a query came through.
type Kind string

const (
	KindSearch Kind = "search"
	KindTerms  Kind = "search_terms"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch ms := d.Milliseconds(); {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// Event is one answered query.
type Event struct {
	Kind    Kind
	Query   string
	Results int
	Latency time.Duration
	Failed  bool
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a copy of the collected statistics.
type Snapshot struct {
	TotalQueries      int64                   `json:"total_queries"`
	FailedQueries     int64                   `json:"failed_queries"`
	ZeroResultCount   int64                   `json:"zero_result_count"`
	ByKind            map[Kind]int64          `json:"by_kind"`
	TopTerms          []TermCount             `json:"top_terms"`
	ZeroResultQueries []string                `json:"zero_result_queries"`
	Latency           map[LatencyBucket]int64 `json:"latency"`
	RepeatCount       int64                   `json:"repeat_count"`
	RepeatRate        float64                 `json:"repeat_rate"`
	Since             time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of successful queries that found
// nothing, in percent.
func (s Snapshot) ZeroResultPercentage() float64 {
	ok := s.TotalQueries - s.FailedQueries
	if ok <= 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(ok) * 100
}

// Config sizes the bounded collections.
type Config struct {
	// TopTerms is the number of distinct terms tracked. Default 100.
	TopTerms int
	// ZeroResults is the number of recent zero-result queries kept. Default 20.
	ZeroResults int
	// Recent is the number of recent queries checked for repeats. Default 500.
	Recent int
}

func (c Config) withDefaults() Config {
	if c.TopTerms <= 0 {
		c.TopTerms = 100
	}
	if c.ZeroResults <= 0 {
		c.ZeroResults = 20
	}
	if c.Recent <= 0 {
		c.Recent = 500
	}
	return c
}

// Metrics collects query statistics. It is safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	total, failed, zero, repeats int64
	byKind                       map[Kind]int64
	latency                      map[LatencyBucket]int64
	terms                        *lru.Cache[string, int64]
	recent                       *lru.Cache[string, struct{}]
	zeroQueries                  *ring[string]
	since                        time.Time
}

// New returns an empty collector.
func New(cfg Config) *Metrics {
	cfg = cfg.withDefaults()
	terms, _ := lru.New[string, int64](cfg.TopTerms)
	recent, _ := lru.New[string, struct{}](cfg.Recent)
	return &Metrics{
		byKind:      make(map[Kind]int64),
		latency:     make(map[LatencyBucket]int64),
		terms:       terms,
		recent:      recent,
		zeroQueries: newRing[string](cfg.ZeroResults),
		since:       time.Now(),
	}
}

// Record adds one query.
func (m *Metrics) Record(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.byKind[e.Kind]++
	m.latency[LatencyToBucket(e.Latency)]++
	if e.Failed {
		m.failed++
		return
	}
	if e.Results == 0 {
		m.zero++
		m.zeroQueries.add(e.Query)
	}
	if e.Kind == KindSearch {
		for _, t := range ExtractTerms(e.Query) {
			n, _ := m.terms.Get(t)
			m.terms.Add(t, n+1)
		}
	}
	key := hashQuery(e.Kind, e.Query)
	if _, seen := m.recent.Get(key); seen {
		m.repeats++
	}
	m.recent.Add(key, struct{}{})
}

// Snapshot returns the statistics collected so far. TopTerms is sorted by
// count, then term.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	top := make([]TermCount, 0, m.terms.Len())
	for _, k := range m.terms.Keys() {
		if n, ok := m.terms.Peek(k); ok {
			top = append(top, TermCount{Term: k, Count: n})
		}
	}
	slices.SortFunc(top, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Term, b.Term)
	})

	s := Snapshot{
		TotalQueries:      m.total,
		FailedQueries:     m.failed,
		ZeroResultCount:   m.zero,
		ByKind:            maps.Clone(m.byKind),
		TopTerms:          top,
		ZeroResultQueries: m.zeroQueries.items(),
		Latency:           maps.Clone(m.latency),
		RepeatCount:       m.repeats,
		Since:             m.since,
	}
	if m.total > 0 {
		s.RepeatRate = float64(m.repeats) / float64(m.total)
	}
	return s
}

var operators = map[string]bool{"and": true, "or": true, "not": true, "to": true}

// ExtractTerms returns the lowercased words of query-string text, without
// field prefixes, operators, quotes or modifiers. Words shorter than three
// bytes are dropped.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if i := strings.LastIndexByte(w, ':'); i >= 0 {
			w = w[i+1:]
		}
		if i := strings.IndexAny(w, "~^"); i >= 0 {
			w = w[:i]
		}
		w = strings.Trim(w, `"'()[]{}+-*<>=!`)
		if len(w) < 3 || operators[w] {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

func hashQuery(kind Kind, query string) string {
	sum := sha256.Sum256([]byte(string(kind) + "\x00" + strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:16])
}

// ring keeps the last n items.
type ring[T any] struct {
	buf  []T
	next int
	full bool
}

func newRing[T any](n int) *ring[T] { return &ring[T]{buf: make([]T, n)} }

func (r *ring[T]) add(v T) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// items returns the kept items, oldest first.
func (r *ring[T]) items() []T {
	if !r.full {
		return slices.Clone(r.buf[:r.next])
	}
	return append(slices.Clone(r.buf[r.next:]), r.buf[:r.next]...)
}
