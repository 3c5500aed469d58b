package loader

import (
	"context"
	"fmt"
	"sync"
)

// Task is a handle on background work. It exposes cancellation and
// completion instead of launching and forgetting.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Go runs fn on a new goroutine under a context derived from ctx.
// A panic in fn is converted into the task error.
func Go(ctx context.Context, fn func(ctx context.Context) error) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()

		err := runSafely(func() error { return fn(taskCtx) })

		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
	}()

	return t
}

// Cancel asks the task to stop. It does not wait.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return fmt.Errorf("wait task: %w", ctx.Err())
	}
}

// Err returns the task error, nil while the task is still running.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}

func runSafely(fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("task: panic recovered: %v", recovered)
		}
	}()

	return fn()
}
