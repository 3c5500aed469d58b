package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SergeyParamoshkin/articlefeed/internal/model"
	"github.com/SergeyParamoshkin/articlefeed/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRefreshReplacesStore(t *testing.T) {
	t.Parallel()

	target := store.New[model.Author]("authors")
	l := Func[model.Author](func(context.Context) ([]model.Author, error) {
		return []model.Author{{ID: 0, Name: "John Smith"}, {ID: 1, Name: "John Doe"}}, nil
	})

	require.NoError(t, Refresh[model.Author](context.Background(), "authors", l, target))

	snap := target.Snapshot()
	assert.Equal(t, uint64(1), snap.Version)
	assert.Len(t, snap.Items, 2)
}

func TestRefreshSurfacesSourceUnavailable(t *testing.T) {
	t.Parallel()

	target := store.New[model.Author]("authors")
	l := Func[model.Author](func(context.Context) ([]model.Author, error) {
		return nil, Unavailable("fixture", errors.New("connection refused"))
	})

	err := Refresh[model.Author](context.Background(), "authors", l, target)

	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, uint64(0), target.Snapshot().Version, "failed load must not touch the store")
}

func TestRefreshSkipsApplyAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	target := store.New[model.Author]("authors")
	l := Func[model.Author](func(context.Context) ([]model.Author, error) {
		cancel()
		return []model.Author{{ID: 1}}, nil
	})

	err := Refresh[model.Author](ctx, "authors", l, target)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), target.Snapshot().Version)
}

func TestUnavailableWithoutCause(t *testing.T) {
	t.Parallel()

	err := Unavailable("sqlite", nil)

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, "sqlite: loader: source unavailable", err.Error())
}

func TestTaskCompletes(t *testing.T) {
	t.Parallel()

	task := Go(context.Background(), func(context.Context) error { return nil })

	require.NoError(t, task.Wait(context.Background()))
	select {
	case <-task.Done():
	default:
		t.Fatal("done must be closed after Wait returns")
	}
}

func TestTaskCancel(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	task := Go(context.Background(), func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	assert.NoError(t, task.Err(), "no error while running")
	task.Cancel()

	err := task.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTaskWaitTimesOut(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	task := Go(context.Background(), func(context.Context) error {
		<-release
		return nil
	})
	defer func() {
		close(release)
		<-task.Done()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, task.Wait(ctx), context.DeadlineExceeded)
}

func TestTaskRecoversPanic(t *testing.T) {
	t.Parallel()

	task := Go(context.Background(), func(context.Context) error {
		panic("boom")
	})

	err := task.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered: boom")
}
