// Package loader fetches the authoritative contents of a store from an
// external source and applies them with ReplaceAll.
package loader

import (
	"context"
	"errors"
	"fmt"
)

// ErrSourceUnavailable indicates that the external source could not be reached.
var ErrSourceUnavailable = errors.New("loader: source unavailable")

// Loader fetches an ordered sequence of items. Load may block for as long as
// the source takes; it must return when ctx is done.
type Loader[T any] interface {
	Load(ctx context.Context) ([]T, error)
}

// Func adapts a plain function to Loader.
type Func[T any] func(ctx context.Context) ([]T, error)

// Load calls f.
func (f Func[T]) Load(ctx context.Context) ([]T, error) {
	return f(ctx)
}

// Target receives loaded items, usually a *store.Store.
type Target[T any] interface {
	ReplaceAll(items []T) error
}

// Unavailable wraps err so that errors.Is(err, ErrSourceUnavailable) holds.
func Unavailable(source string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", source, ErrSourceUnavailable)
	}

	return fmt.Errorf("%s: %w: %w", source, ErrSourceUnavailable, err)
}

// Refresh loads from l and replaces the contents of target. Nothing is
// applied when the load fails.
func Refresh[T any](ctx context.Context, name string, l Loader[T], target Target[T]) error {
	items, err := l.Load(ctx)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("refresh %s: %w", name, err)
	}
	if err := target.ReplaceAll(items); err != nil {
		return fmt.Errorf("refresh %s: %w", name, err)
	}

	return nil
}
