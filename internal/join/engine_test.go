package join

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/SergeyParamoshkin/articlefeed/internal/model"
	"github.com/SergeyParamoshkin/articlefeed/internal/store"
)

const waitTimeout = 2 * time.Second

// publishSpy records every result delivered by an engine.
type publishSpy struct {
	mu      sync.Mutex
	results []Result
}

func (s *publishSpy) record(result Result) {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
}

func (s *publishSpy) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.results)
}

func (s *publishSpy) last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.results[len(s.results)-1]
}

func newStores() (*store.Store[model.Article], *store.Store[model.Author]) {
	return store.New[model.Article]("articles"), store.New[model.Author]("authors")
}

func startEngine(t *testing.T, articles *store.Store[model.Article], authors *store.Store[model.Author], opts ...Option) (*Engine, *publishSpy) {
	t.Helper()

	opts = append([]Option{WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)
	engine := New(articles, authors, opts...)
	t.Cleanup(func() {
		engine.CancelAll()
		<-engine.Done()
	})

	spy := &publishSpy{}
	engine.Results().Subscribe(spy.record)

	return engine, spy
}

func authorName(item model.ArticleWithAuthor) string {
	if item.Author == nil {
		return ""
	}

	return item.Author.Name
}

func TestEngineInitialJoinOverEmptyStores(t *testing.T) {
	t.Parallel()

	articles, authors := newStores()
	engine, spy := startEngine(t, articles, authors)

	require.Equal(t, 1, spy.count(), "initial join must be published at construction")
	latest := engine.Latest()
	assert.Empty(t, latest.Items)
	assert.Equal(t, uint64(0), latest.ArticlesVersion)
	assert.Equal(t, uint64(0), latest.AuthorsVersion)
}

func TestEngineInitialJoinOverLoadedStores(t *testing.T) {
	t.Parallel()

	articles, authors := newStores()
	require.NoError(t, articles.ReplaceAll([]model.Article{{ID: 0, AuthorID: 1}}))
	require.NoError(t, authors.ReplaceAll([]model.Author{{ID: 1, Name: "John Doe"}}))

	engine, _ := startEngine(t, articles, authors)

	latest := engine.Latest()
	require.Len(t, latest.Items, 1)
	assert.Equal(t, "John Doe", authorName(latest.Items[0]))
}

func TestEngineRepublishesOnEitherStoreChange(t *testing.T) {
	t.Parallel()

	articles, authors := newStores()
	_, spy := startEngine(t, articles, authors)

	require.NoError(t, articles.ReplaceAll([]model.Article{
		{ID: 0, AuthorID: 1},
		{ID: 2, AuthorID: 9},
	}))
	require.Eventually(t, func() bool {
		return spy.last().ArticlesVersion == 1
	}, waitTimeout, time.Millisecond)
	assert.Empty(t, authorName(spy.last().Items[0]), "authors not loaded yet")

	require.NoError(t, authors.ReplaceAll([]model.Author{{ID: 1, Name: "John Doe"}}))
	require.Eventually(t, func() bool {
		return spy.last().AuthorsVersion == 1
	}, waitTimeout, time.Millisecond)

	last := spy.last()
	require.Len(t, last.Items, 2)
	assert.Equal(t, "John Doe", authorName(last.Items[0]))
	assert.Nil(t, last.Items[1].Author)
}

func TestEngineReflectsBookmarkAndDelete(t *testing.T) {
	t.Parallel()

	articles, authors := newStores()
	require.NoError(t, articles.ReplaceAll([]model.Article{{ID: 0}, {ID: 1}}))
	_, spy := startEngine(t, articles, authors)

	ok, err := articles.UpdateOne(1, func(a model.Article) model.Article { return a.WithBookmark(true) })
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, articles.DeleteOne(0))

	require.Eventually(t, func() bool {
		return spy.last().ArticlesVersion == 3
	}, waitTimeout, time.Millisecond)

	last := spy.last()
	require.Len(t, last.Items, 1)
	assert.Equal(t, 1, last.Items[0].Article.ID)
	assert.True(t, last.Items[0].Article.IsBookmarked)
}

func TestEngineCancelAllStopsPublishing(t *testing.T) {
	t.Parallel()

	articles, authors := newStores()
	engine, spy := startEngine(t, articles, authors)

	require.NoError(t, articles.ReplaceAll([]model.Article{{ID: 0, AuthorID: 0}}))
	require.Eventually(t, func() bool {
		return spy.last().ArticlesVersion == 1
	}, waitTimeout, time.Millisecond)

	engine.CancelAll()
	engine.CancelAll()
	before := spy.count()

	for i := 0; i < 25; i++ {
		ok, err := articles.UpdateOne(0, func(a model.Article) model.Article { return a.WithBookmark(!a.IsBookmarked) })
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, authors.ReplaceAll([]model.Author{{ID: 0, Name: "John Smith"}}))

	select {
	case <-engine.Done():
	case <-time.After(waitTimeout):
		t.Fatal("worker did not exit after CancelAll")
	}
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, before, spy.count(), "no publish may follow CancelAll")
	assert.Equal(t, uint64(1), engine.Latest().ArticlesVersion, "previous result stays current")
}

func TestEngineCancelBetweenPhasesSuppressesPublish(t *testing.T) {
	t.Parallel()

	reached := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	checkpoint := func(cfg *config) {
		cfg.checkpoint = func() {
			if calls.Add(1) == 2 {
				close(reached)
				<-release
			}
		}
	}

	articles, authors := newStores()
	engine, spy := startEngine(t, articles, authors, checkpoint)
	require.Equal(t, 1, spy.count())

	require.NoError(t, articles.ReplaceAll([]model.Article{{ID: 0}}))
	select {
	case <-reached:
	case <-time.After(waitTimeout):
		t.Fatal("recompute did not reach the checkpoint")
	}

	engine.CancelAll()
	close(release)

	select {
	case <-engine.Done():
	case <-time.After(waitTimeout):
		t.Fatal("worker did not exit after CancelAll")
	}

	assert.Equal(t, 1, spy.count())
	assert.Equal(t, uint64(0), engine.Latest().ArticlesVersion)
}

// TestEngineCoalescesBurstAndSeesLatestSnapshots blocks one recomputation
// after its author lookup is built, applies a burst of changes, and expects
// exactly one more recomputation that sees all of them.
func TestEngineCoalescesBurstAndSeesLatestSnapshots(t *testing.T) {
	t.Parallel()

	reached := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	checkpoint := func(cfg *config) {
		cfg.checkpoint = func() {
			if calls.Add(1) == 2 {
				close(reached)
				<-release
			}
		}
	}

	articles, authors := newStores()
	_, spy := startEngine(t, articles, authors, checkpoint)

	require.NoError(t, articles.ReplaceAll([]model.Article{{ID: 0, AuthorID: 1}}))
	select {
	case <-reached:
	case <-time.After(waitTimeout):
		t.Fatal("recompute did not reach the checkpoint")
	}

	require.NoError(t, authors.ReplaceAll([]model.Author{{ID: 1, Name: "John Doe"}}))
	for i := 0; i < 5; i++ {
		_, err := articles.UpdateOne(0, func(a model.Article) model.Article { return a.WithBookmark(!a.IsBookmarked) })
		require.NoError(t, err)
	}
	close(release)

	require.Eventually(t, func() bool {
		last := spy.last()
		return last.AuthorsVersion == 1 && last.ArticlesVersion == 6
	}, waitTimeout, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, spy.count(), "initial, blocked and one coalesced recompute")
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "John Doe", authorName(spy.last().Items[0]))
}
