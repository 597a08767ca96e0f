package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackgroundRunsTask(t *testing.T) {
	bg := NewBackground(time.Second)

	var ran atomic.Bool
	bg.Go("test-task", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bg.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran.Load() {
		t.Error("task did not run")
	}
}

func TestBackgroundSwallowsErrors(t *testing.T) {
	bg := NewBackground(time.Second)

	bg.Go("failing-task", func(ctx context.Context) error {
		return errors.New("boom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bg.Wait(ctx); err != nil {
		t.Fatalf("task errors must not surface from Wait: %v", err)
	}
}

func TestBackgroundRecoversPanics(t *testing.T) {
	bg := NewBackground(time.Second)

	bg.Go("panicking-task", func(ctx context.Context) error {
		panic("should not escape")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bg.Wait(ctx); err != nil {
		t.Fatalf("panic must not escape the task goroutine: %v", err)
	}
}

func TestBackgroundWaitRespectsContext(t *testing.T) {
	bg := NewBackground(5 * time.Second)

	release := make(chan struct{})
	bg.Go("slow-task", func(ctx context.Context) error {
		<-release
		return nil
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := bg.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestBackgroundTaskContextHasTimeout(t *testing.T) {
	bg := NewBackground(time.Second)

	var hasDeadline atomic.Bool
	bg.Go("deadline-check", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hasDeadline.Store(ok)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bg.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasDeadline.Load() {
		t.Error("task context is missing a deadline")
	}
}
