package join

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/articlefeed/internal/model"
	"github.com/SergeyParamoshkin/articlefeed/internal/observable"
	"github.com/SergeyParamoshkin/articlefeed/internal/store"
)

// Source is an observable versioned collection, usually a *store.Store.
type Source[T any] interface {
	Snapshot() store.Snapshot[T]
	Subscribe(handler func(store.Snapshot[T])) (unsubscribe func())
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	logger *zap.SugaredLogger
	meter  metric.Meter
	// checkpoint runs between the lookup build and the map phase.
	checkpoint func()
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMeter sets the meter for recompute instruments.
func WithMeter(meter metric.Meter) Option {
	return func(cfg *config) {
		cfg.meter = meter
	}
}

// Engine keeps the joined view of two sources up to date.
type Engine struct {
	articles Source[model.Article]
	authors  Source[model.Author]
	results  *observable.Channel[Result]
	logger   *zap.SugaredLogger
	metrics  engineMetrics
	hook     func()

	ctx     context.Context
	cancel  context.CancelFunc
	trigger chan struct{}
	done    chan struct{}

	// publishMu makes the final cancellation check and the publish atomic
	// with respect to CancelAll.
	publishMu sync.Mutex

	unsubscribe []func()
	cancelOnce  sync.Once
}

// New builds an engine, publishes the join of the current snapshots and
// starts watching both sources.
func New(articles Source[model.Article], authors Source[model.Author], opts ...Option) *Engine {
	cfg := config{
		logger: zap.NewNop().Sugar(),
		meter:  global.Meter("articlefeed/join"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		articles: articles,
		authors:  authors,
		results:  observable.New[Result](),
		logger:   cfg.logger,
		metrics:  newEngineMetrics(cfg.meter),
		hook:     cfg.checkpoint,
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	e.recompute(ctx)

	e.unsubscribe = []func(){
		articles.Subscribe(func(store.Snapshot[model.Article]) { e.schedule() }),
		authors.Subscribe(func(store.Snapshot[model.Author]) { e.schedule() }),
	}

	go e.run()

	return e
}

// Results returns the channel carrying every published join.
func (e *Engine) Results() *observable.Channel[Result] {
	return e.results
}

// Latest returns the most recently published join.
func (e *Engine) Latest() Result {
	result, _ := e.results.Latest()

	return result
}

// Done is closed once the background worker has exited after CancelAll.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// CancelAll stops the engine for good. Any recomputation in flight is
// abandoned or its result suppressed, and no publish happens after CancelAll
// returns. It must not be called from a Results handler.
func (e *Engine) CancelAll() {
	e.cancelOnce.Do(func() {
		e.publishMu.Lock()
		e.cancel()
		e.publishMu.Unlock()

		for _, unsubscribe := range e.unsubscribe {
			unsubscribe()
		}
		e.metrics.cancelled.Add(context.Background(), 1)
		e.logger.Debugw("join engine cancelled")
	})
}

// schedule requests a recomputation. Requests made while one is already
// pending coalesce into it.
func (e *Engine) schedule() {
	if e.ctx.Err() != nil {
		return
	}

	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

func (e *Engine) run() {
	defer close(e.done)

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.trigger:
			e.recompute(e.ctx)
		}
	}
}

// recompute joins the snapshots current at the time it runs and publishes
// the result unless the engine was cancelled meanwhile.
func (e *Engine) recompute(ctx context.Context) {
	start := time.Now()
	e.metrics.recomputes.Add(ctx, 1)

	authors := e.authors.Snapshot()
	lookup := indexAuthors(authors.Items)

	if e.hook != nil {
		e.hook()
	}
	if ctx.Err() != nil {
		e.logger.Debugw("join abandoned after lookup build", "authors_version", authors.Version)
		return
	}

	articles := e.articles.Snapshot()
	result := Result{
		Items:           joinWith(articles.Items, lookup),
		ArticlesVersion: articles.Version,
		AuthorsVersion:  authors.Version,
	}

	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	if ctx.Err() != nil {
		e.logger.Debugw("join result suppressed", "articles_version", articles.Version)
		return
	}

	e.results.Publish(result)
	e.metrics.publishes.Add(ctx, 1)
	e.metrics.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	e.logger.Debugw("join published",
		"articles_version", result.ArticlesVersion,
		"authors_version", result.AuthorsVersion,
		"size", len(result.Items))
}
