package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := map[time.Duration]LatencyBucket{
		5 * time.Millisecond:   BucketP10,
		10 * time.Millisecond:  BucketP50,
		75 * time.Millisecond:  BucketP100,
		100 * time.Millisecond: BucketP500,
		2 * time.Second:        BucketP1000,
	}
	for d, want := range tests {
		assert.Equal(t, want, LatencyToBucket(d), d.String())
	}
}

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{query: "Old Man Sea", want: []string{"old", "man", "sea"}},
		{query: `title:whale AND "moby dick"`, want: []string{"whale", "moby", "dick"}},
		{query: "sail* NOT ship~1 body:(storm)", want: []string{"sail", "ship", "storm"}},
		{query: "year:>=1950 a of", want: []string{"1950"}},
		{query: "   ", want: nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTerms(tt.query), tt.query)
	}
}

func TestMetrics_Record(t *testing.T) {
	// Given: a mix of successful, empty and failed queries
	m := New(Config{})
	m.Record(Event{Kind: KindSearch, Query: "whale ship", Results: 3, Latency: time.Millisecond})
	m.Record(Event{Kind: KindSearch, Query: "Whale", Results: 1, Latency: 20 * time.Millisecond})
	m.Record(Event{Kind: KindSearch, Query: "whale", Results: 1})
	m.Record(Event{Kind: KindSearch, Query: "kraken", Results: 0})
	m.Record(Event{Kind: KindTerms, Query: "title", Results: 9})
	m.Record(Event{Kind: KindSearch, Query: "bad:", Failed: true})

	// When: taking a snapshot
	s := m.Snapshot()

	// Then: counters and derived values reflect every event
	assert.EqualValues(t, 6, s.TotalQueries)
	assert.EqualValues(t, 1, s.FailedQueries)
	assert.EqualValues(t, 1, s.ZeroResultCount)
	assert.EqualValues(t, 5, s.ByKind[KindSearch])
	assert.EqualValues(t, 1, s.ByKind[KindTerms])
	assert.EqualValues(t, 1, s.RepeatCount)
	assert.InDelta(t, 1.0/6, s.RepeatRate, 1e-9)
	assert.InDelta(t, 20.0, s.ZeroResultPercentage(), 1e-9)
	assert.Equal(t, []string{"kraken"}, s.ZeroResultQueries)
	assert.EqualValues(t, 5, s.Latency[BucketP10])

	require.NotEmpty(t, s.TopTerms)
	assert.Equal(t, TermCount{Term: "whale", Count: 3}, s.TopTerms[0])
	assert.NotContains(t, s.TopTerms, TermCount{Term: "title", Count: 1})
}

func TestMetrics_ZeroResultsBounded(t *testing.T) {
	m := New(Config{ZeroResults: 2})

	for _, q := range []string{"one", "two", "three"} {
		m.Record(Event{Kind: KindSearch, Query: q})
	}

	assert.Equal(t, []string{"two", "three"}, m.Snapshot().ZeroResultQueries)
}

func TestMetrics_SnapshotIsCopy(t *testing.T) {
	m := New(Config{})
	m.Record(Event{Kind: KindSearch, Query: "whale", Results: 1})
	s := m.Snapshot()

	m.Record(Event{Kind: KindSearch, Query: "whale", Results: 1})

	assert.EqualValues(t, 1, s.ByKind[KindSearch])
}

func TestMetrics_ConcurrentRecord(t *testing.T) {
	m := New(Config{})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				m.Record(Event{Kind: KindSearch, Query: "q", Results: i + j})
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 800, m.Snapshot().TotalQueries)
}
