// Package app wires stores, loaders and join engines together.
//
// A Container lives as long as the application and owns the article and
// author stores. Views are created from it on demand; each view gets its own
// join engine and must be closed by whoever created it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SergeyParamoshkin/articlefeed/internal/loader"
	"github.com/SergeyParamoshkin/articlefeed/internal/model"
	"github.com/SergeyParamoshkin/articlefeed/internal/store"
)

// ErrInvalidRequest indicates a request for something the container cannot
// build. It is a programming error, not a runtime condition.
var ErrInvalidRequest = errors.New("app: invalid request")

// ViewKind names a view the container can build.
type ViewKind string

// ViewArticles is the article list view.
const ViewArticles ViewKind = "articles"

// Source provides one loader per store.
type Source interface {
	Articles() loader.Loader[model.Article]
	Authors() loader.Loader[model.Author]
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger shared by the container, its stores and views.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMeter sets the meter shared by the stores and join engines.
func WithMeter(meter metric.Meter) Option {
	return func(c *Container) {
		c.meter = meter
	}
}

// WithRetry retries loads that fail with loader.ErrSourceUnavailable using a
// fresh policy from newBackOff for every refresh. Without it a failed load is
// returned as is.
func WithRetry(newBackOff func() backoff.BackOff) Option {
	return func(c *Container) {
		c.newBackOff = newBackOff
	}
}

// ExponentialRetry builds a retry policy factory for WithRetry.
func ExponentialRetry(maxRetries uint64, initial, maxInterval time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxInterval
		b.MaxElapsedTime = 0

		return backoff.WithMaxRetries(b, maxRetries)
	}
}

// Container holds application-scoped state.
type Container struct {
	source     Source
	articles   *store.Store[model.Article]
	authors    *store.Store[model.Author]
	logger     *zap.SugaredLogger
	meter      metric.Meter
	newBackOff func() backoff.BackOff
}

// NewContainer creates a container with empty stores over source.
func NewContainer(source Source, opts ...Option) *Container {
	c := &Container{
		source: source,
		logger: zap.NewNop().Sugar(),
		meter:  global.Meter("articlefeed"),
	}
	for _, opt := range opts {
		opt(c)
	}

	storeOpts := []store.Option{store.WithLogger(c.logger), store.WithMeter(c.meter)}
	c.articles = store.New[model.Article]("articles", storeOpts...)
	c.authors = store.New[model.Author]("authors", storeOpts...)

	return c
}

// Articles returns the article store.
func (c *Container) Articles() *store.Store[model.Article] {
	return c.articles
}

// Authors returns the author store.
func (c *Container) Authors() *store.Store[model.Author] {
	return c.authors
}

// Refresh reloads both stores concurrently. Each store is replaced as soon as
// its own load finishes; the first failure is returned after both are done.
func (c *Container) Refresh(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error {
		return refresh(ctx, c, "articles", c.source.Articles(), c.articles)
	})
	g.Go(func() error {
		return refresh(ctx, c, "authors", c.source.Authors(), c.authors)
	})

	if err := g.Wait(); err != nil {
		c.logger.Errorw("refresh failed", "error", err)
		return err
	}
	c.logger.Infow("refresh finished",
		"articles_version", c.articles.Snapshot().Version,
		"authors_version", c.authors.Snapshot().Version)

	return nil
}

// RefreshAsync runs Refresh in the background.
func (c *Container) RefreshAsync(ctx context.Context) *loader.Task {
	return loader.Go(ctx, c.Refresh)
}

// ToggleBookmark sets the bookmark flag of article id. It reports false when
// the article does not exist.
func (c *Container) ToggleBookmark(id int, bookmarked bool) bool {
	ok, err := c.articles.UpdateOne(id, func(a model.Article) model.Article {
		return a.WithBookmark(bookmarked)
	})
	if err != nil {
		c.logger.Errorw("bookmark update failed", "id", id, "error", err)
		return false
	}

	return ok
}

// DeleteArticle removes article id. It reports false when the article does
// not exist.
func (c *Container) DeleteArticle(id int) bool {
	return c.articles.DeleteOne(id)
}

// NewView builds a view of the given kind. The caller owns the view and must
// Close it.
func (c *Container) NewView(kind ViewKind) (*ArticlesView, error) {
	switch kind {
	case ViewArticles:
		return newArticlesView(c), nil
	default:
		return nil, fmt.Errorf("new view %q: %w", kind, ErrInvalidRequest)
	}
}

func refresh[T any](ctx context.Context, c *Container, name string, l loader.Loader[T], target loader.Target[T]) error {
	if c.newBackOff == nil {
		return loader.Refresh(ctx, name, l, target)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := loader.Refresh(ctx, name, l, target)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, loader.ErrSourceUnavailable):
			c.logger.Warnw("load failed, will retry", "store", name, "attempt", attempt, "error", err)
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	return backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
}
