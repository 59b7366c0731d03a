package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/pkg/boxed"
)

func TestRun_ReturnsResult(t *testing.T) {
	v, err := Run(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRun_ConvertsPanicToInternalError(t *testing.T) {
	v, err := Run(context.Background(), func(context.Context) (string, error) {
		panic("engine exploded")
	})

	assert.Empty(t, v)
	assert.ErrorIs(t, err, errors.ErrInternal)
	assert.Contains(t, err.Error(), "engine exploded")
}

func TestSubmit_SameOutcomeAsRun(t *testing.T) {
	// Given: one operation
	pool := NewPool(Config{Workers: 2})
	defer pool.Close()

	op := func(context.Context) (string, error) { return "done", nil }
	failing := func(context.Context) (string, error) {
		return "", errors.New(errors.ErrCodeCommit, "disk full", nil)
	}

	// When: running both forms
	syncV, syncErr := Run(context.Background(), op)
	asyncV, asyncErr := Submit(pool, op).Await(context.Background())
	_, syncFail := Run(context.Background(), failing)
	_, asyncFail := Submit(pool, failing).Await(context.Background())

	// Then: the outcomes are identical
	assert.Equal(t, syncV, asyncV)
	assert.Equal(t, syncErr, asyncErr)
	assert.ErrorIs(t, syncFail, errors.ErrCommit)
	assert.ErrorIs(t, asyncFail, errors.ErrCommit)
}

func TestSubmit_BoundsConcurrency(t *testing.T) {
	// Given: a pool with two workers
	pool := NewPool(Config{Workers: 2})
	defer pool.Close()

	var running, peak atomic.Int32
	op := func(context.Context) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	}

	// When: submitting more jobs than workers
	promises := make([]*Promise[struct{}], 10)
	for i := range promises {
		promises[i] = Submit(pool, op)
	}
	for _, p := range promises {
		_, err := p.Await(context.Background())
		require.NoError(t, err)
	}

	// Then: never more than two ran at once
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int64(10), pool.Stats().Completed)
}

func TestSubmitWith_CloneOutlivesCallerHandle(t *testing.T) {
	// Given: a shared value whose only caller handle is released right after
	// the deferred call is issued
	pool := NewPool(Config{Workers: 1})
	defer pool.Close()

	var released atomic.Bool
	shared := boxed.NewShared(10, func(int) { released.Store(true) })
	gate := make(chan struct{})

	promise := SubmitWith(pool, shared,
		func(_ context.Context, h *boxed.Shared[int]) (int, error) {
			<-gate
			return boxed.Locked(h, func(v *int) (int, error) { return *v + 1, nil })
		})

	// When: the caller releases its handle while the job is in flight
	shared.Release()
	assert.False(t, released.Load())
	close(gate)

	// Then: the job still sees a live value, which is released afterwards
	v, err := promise.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, v)
	require.Eventually(t, released.Load, time.Second, 5*time.Millisecond)
}

func TestRunWith_BlockingForm(t *testing.T) {
	shared := boxed.NewShared(2, nil)
	defer shared.Release()

	v, err := RunWith(context.Background(), shared,
		func(_ context.Context, h *boxed.Shared[int]) (int, error) {
			return boxed.Locked(h, func(v *int) (int, error) { return *v * 3, nil })
		})

	require.NoError(t, err)
	assert.Equal(t, 6, v)
	assert.Equal(t, int64(1), shared.RefCount())
}

func TestSubmit_RetainerKeepsValueAlive(t *testing.T) {
	pool := NewPool(Config{Workers: 1})
	defer pool.Close()

	var released atomic.Bool
	arc := boxed.NewArc("index", func(string) { released.Store(true) })
	gate := make(chan struct{})

	promise := Submit(pool, func(context.Context) (bool, error) {
		<-gate
		return released.Load(), nil
	}, arc)
	arc.Release()
	close(gate)

	sawReleased, err := promise.Await(context.Background())
	require.NoError(t, err)
	assert.False(t, sawReleased)
	require.Eventually(t, released.Load, time.Second, 5*time.Millisecond)
}

func TestSubmitWith_ReleasedHandleRejects(t *testing.T) {
	shared := boxed.NewShared(1, nil)
	shared.Release()

	_, err := SubmitWith(nil, shared,
		func(context.Context, *boxed.Shared[int]) (int, error) { return 0, nil }).
		Await(context.Background())

	assert.ErrorIs(t, err, errors.ErrIllegalState)
}

func TestSubmit_RetainFailureRejects(t *testing.T) {
	pool := NewPool(Config{Workers: 1})
	defer pool.Close()

	shared := boxed.NewShared(1, nil)
	shared.Release()

	var ran atomic.Bool
	_, err := Submit(pool, func(context.Context) (int, error) {
		ran.Store(true)
		return 0, nil
	}, shared).Await(context.Background())

	assert.ErrorIs(t, err, errors.ErrIllegalState)
	assert.False(t, ran.Load())
}

func TestSubmit_AfterCloseFails(t *testing.T) {
	pool := NewPool(Config{Workers: 1})
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())

	_, err := Submit(pool, func(context.Context) (int, error) { return 1, nil }).
		Await(context.Background())

	assert.ErrorIs(t, err, errors.ErrIllegalState)
}

func TestClose_WaitsForInFlightJobs(t *testing.T) {
	pool := NewPool(Config{Workers: 1})

	var finished atomic.Bool
	Submit(pool, func(context.Context) (int, error) {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return 0, nil
	})

	require.NoError(t, pool.Close())
	assert.True(t, finished.Load())
}

func TestPromise_ThenRunsSeriallyOnDispatcher(t *testing.T) {
	// Given: many concurrent completions
	pool := NewPool(Config{Workers: 4})

	var (
		active  atomic.Int32
		overlap atomic.Bool
		mu      sync.Mutex
		got     []int
	)

	// When: each registers a callback
	for i := range 20 {
		Submit(pool, func(context.Context) (int, error) { return i, nil }).
			Then(func(v int, err error) {
				if active.Add(1) > 1 {
					overlap.Store(true)
				}
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
				time.Sleep(time.Millisecond)
				active.Add(-1)
			})
	}
	require.NoError(t, pool.Close())

	// Then: every callback ran exactly once and none overlapped
	assert.False(t, overlap.Load())
	assert.Len(t, got, 20)
}

func TestPromise_ThenAfterSettle(t *testing.T) {
	pool := NewPool(Config{Workers: 1})
	defer pool.Close()

	p := Resolve(pool, "ready")
	ch := make(chan string, 1)
	p.Then(func(v string, err error) { ch <- v })

	select {
	case v := <-ch:
		assert.Equal(t, "ready", v)
	case <-time.After(time.Second):
		t.Fatal("callback not delivered")
	}
}

func TestPromise_AwaitContextOnlyStopsWaiting(t *testing.T) {
	pool := NewPool(Config{Workers: 1})
	defer pool.Close()

	gate := make(chan struct{})
	var finished atomic.Bool
	p := Submit(pool, func(context.Context) (int, error) {
		<-gate
		finished.Store(true)
		return 7, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The operation still runs to completion
	close(gate)
	v, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.True(t, finished.Load())
}

func TestReject(t *testing.T) {
	p := Reject[int](nil, errors.InvalidArgument("limit is negative"))

	select {
	case <-p.Done():
	default:
		t.Fatal("rejected promise must be settled")
	}
	_, err := p.Await(context.Background())
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestSubmitWith_RefusedOpReleasesClone(t *testing.T) {
	closedPool := NewPool(Config{Workers: 1})
	require.NoError(t, closedPool.Close())
	livePool := NewPool(Config{Workers: 1})
	defer livePool.Close()

	releasedHandle := boxed.NewShared(0, nil)
	releasedHandle.Release()

	tests := []struct {
		name   string
		pool   *Pool
		retain []Retainer
	}{
		{"closed pool", closedPool, nil},
		{"retainer fails", livePool, []Retainer{releasedHandle}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a live handle
			var released atomic.Bool
			shared := boxed.NewShared(1, func(int) { released.Store(true) })

			// When: the deferred call is refused
			var ran atomic.Bool
			_, err := SubmitWith(tt.pool, shared,
				func(context.Context, *boxed.Shared[int]) (int, error) {
					ran.Store(true)
					return 0, nil
				}, tt.retain...).Await(context.Background())

			// Then: only the caller's handle remains
			assert.ErrorIs(t, err, errors.ErrIllegalState)
			assert.False(t, ran.Load())
			assert.Equal(t, int64(1), shared.RefCount())
			shared.Release()
			assert.True(t, released.Load())
		})
	}
}
