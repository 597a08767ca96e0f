package schedule

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const defaultTaskTimeout = 30 * time.Second

// Background runs notification work detached from the HTTP request that
// triggered it. The caller's response never waits on a task; task errors and
// panics are logged here and never propagate.
type Background struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewBackground(timeout time.Duration) *Background {
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	return &Background{timeout: timeout}
}

// Go submits fn for detached execution. Each task gets its own context,
// deliberately not derived from the request context: the request has
// usually completed by the time the task runs.
func (b *Background) Go(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("background task panicked",
					slog.String("task", name),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		started := time.Now()
		if err := fn(ctx); err != nil {
			slog.Error("background task failed",
				slog.String("task", name),
				slog.Duration("elapsed", time.Since(started)),
				slog.String("error", err.Error()),
			)
			return
		}

		slog.Debug("background task completed",
			slog.String("task", name),
			slog.Duration("elapsed", time.Since(started)),
		)
	}()
}

// Wait blocks until all submitted tasks finish or ctx expires. Used during
// shutdown to drain in-flight notification work.
func (b *Background) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
