package bridge

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// Op is one engine operation.
type Op[T any] func(ctx context.Context) (T, error)

// Retainer is a handle that can be kept alive for the duration of a
// deferred operation. Retain returns the function that gives it back.
type Retainer interface {
	Retain() (release func(), err error)
}

// Run executes op on the calling goroutine. A panic inside op is returned
// as an Internal error.
func Run[T any](ctx context.Context, op Op[T]) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bridge_op_panicked", slog.Any("panic", r))
			var zero T
			result, err = zero, errors.Panicked("bridge operation", r)
		}
	}()
	return op(ctx)
}

func retainAll(rs []Retainer) (func(), error) {
	releases := make([]func(), 0, len(rs))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, r := range rs {
		if r == nil {
			continue
		}
		rel, err := r.Retain()
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, rel)
	}
	return releaseAll, nil
}

// Handle is a cloneable, releasable reference such as *boxed.Shared or
// *boxed.Arc.
type Handle[H any] interface {
	Clone() (H, error)
	Release()
}

// HandleOp is an operation on a handle.
type HandleOp[H, T any] func(ctx context.Context, h H) (T, error)

// RunWith is the blocking form of a handle operation.
func RunWith[H Handle[H], T any](ctx context.Context, h H, op HandleOp[H, T]) (T, error) {
	return Run(ctx, func(ctx context.Context) (T, error) {
		return op(ctx, h)
	})
}
