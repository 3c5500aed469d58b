package store

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/SergeyParamoshkin/articlefeed/internal/model"
)

func newArticleStore(t *testing.T) (*Store[model.Article], *[]Snapshot[model.Article]) {
	t.Helper()

	s := New[model.Article]("articles", WithLogger(zaptest.NewLogger(t).Sugar()))
	var seen []Snapshot[model.Article]
	unsubscribe := s.Subscribe(func(snap Snapshot[model.Article]) {
		seen = append(seen, snap)
	})
	t.Cleanup(unsubscribe)

	return s, &seen
}

func fixtureArticles() []model.Article {
	return []model.Article{
		{ID: 0, Text: "Lorem ipsum", AuthorID: 1},
		{ID: 1, Text: "In euismod", AuthorID: 0},
		{ID: 2, Text: "Sed lacinia", IsBookmarked: true, AuthorID: 0},
	}
}

func ids(items []model.Article) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}

	return out
}

func TestStoreStartsEmpty(t *testing.T) {
	t.Parallel()

	s, seen := newArticleStore(t)
	snap := s.Snapshot()

	assert.Equal(t, uint64(0), snap.Version)
	assert.Empty(t, snap.Items)
	assert.NotNil(t, snap.Items)
	assert.Empty(t, *seen)
	assert.Equal(t, "articles", s.Name())
}

func TestStoreReplaceAll(t *testing.T) {
	t.Parallel()

	s, seen := newArticleStore(t)
	require.NoError(t, s.ReplaceAll(fixtureArticles()))

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, []int{0, 1, 2}, ids(snap.Items))
	require.Len(t, *seen, 1)
	assert.Equal(t, snap, (*seen)[0])
}

func TestStoreReplaceAllRejectsDuplicateKeys(t *testing.T) {
	t.Parallel()

	s, seen := newArticleStore(t)
	err := s.ReplaceAll([]model.Article{{ID: 3}, {ID: 3}})

	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, uint64(0), s.Snapshot().Version)
	assert.Empty(t, *seen)
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s, _ := newArticleStore(t)
	input := fixtureArticles()
	require.NoError(t, s.ReplaceAll(input))

	input[0].Text = "changed by caller"
	snap := s.Snapshot()
	snap.Items[1].Text = "changed by reader"

	again := s.Snapshot()
	assert.Equal(t, "Lorem ipsum", again.Items[0].Text)
	assert.Equal(t, "In euismod", again.Items[1].Text)
}

func TestStoreBookmarkToggleRoundTrip(t *testing.T) {
	t.Parallel()

	s, seen := newArticleStore(t)
	require.NoError(t, s.ReplaceAll(fixtureArticles()))
	*seen = nil

	toggle := func(a model.Article) model.Article { return a.WithBookmark(!a.IsBookmarked) }

	ok, err := s.UpdateOne(1, toggle)
	require.NoError(t, err)
	require.True(t, ok)
	item, _ := s.Get(1)
	assert.True(t, item.IsBookmarked)

	ok, err = s.UpdateOne(1, toggle)
	require.NoError(t, err)
	require.True(t, ok)
	item, _ = s.Get(1)
	assert.False(t, item.IsBookmarked)

	assert.Len(t, *seen, 2)
	assert.Equal(t, uint64(3), s.Snapshot().Version)
}

func TestStoreUpdateMissingIsNoop(t *testing.T) {
	t.Parallel()

	s, seen := newArticleStore(t)
	require.NoError(t, s.ReplaceAll(fixtureArticles()))

	ok, err := s.UpdateOne(42, func(a model.Article) model.Article { return a.WithBookmark(true) })

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, *seen, 1)
	assert.Equal(t, uint64(1), s.Snapshot().Version)
}

func TestStoreUpdateRejectsKeyChange(t *testing.T) {
	t.Parallel()

	s, seen := newArticleStore(t)
	require.NoError(t, s.ReplaceAll(fixtureArticles()))

	ok, err := s.UpdateOne(0, func(a model.Article) model.Article {
		a.ID = 2
		return a
	})

	require.ErrorIs(t, err, ErrKeyChanged)
	assert.False(t, ok)
	assert.Len(t, *seen, 1)
	assert.Equal(t, []int{0, 1, 2}, ids(s.Snapshot().Items))
}

func TestStoreDeleteThenDeleteAgain(t *testing.T) {
	t.Parallel()

	s, seen := newArticleStore(t)
	require.NoError(t, s.ReplaceAll(fixtureArticles()))

	assert.True(t, s.DeleteOne(1))
	assert.False(t, s.DeleteOne(1))

	assert.Len(t, *seen, 2)
	assert.Equal(t, []int{0, 2}, ids(s.Snapshot().Items))

	_, ok := s.Get(1)
	assert.False(t, ok)
	item, ok := s.Get(2)
	require.True(t, ok, "index must follow the shifted position")
	assert.Equal(t, "Sed lacinia", item.Text)
}

func TestStoreLateSubscriberGetsLatestSnapshot(t *testing.T) {
	t.Parallel()

	s := New[model.Author]("authors")
	require.NoError(t, s.ReplaceAll([]model.Author{{ID: 1, Name: "John Doe"}}))
	require.True(t, s.DeleteOne(1))

	var got []Snapshot[model.Author]
	s.Subscribe(func(snap Snapshot[model.Author]) { got = append(got, snap) })

	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].Version)
	assert.Empty(t, got[0].Items)
}

// TestStoreRandomMutationsKeepInvariants applies random mutation sequences and
// checks unique keys and one notification per effective mutation.
func TestStoreRandomMutationsKeepInvariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		s := New[model.Article]("articles")
		notifications := 0
		s.Subscribe(func(Snapshot[model.Article]) { notifications++ })

		effective := 0
		for step := 0; step < 100; step++ {
			id := rng.Intn(8)
			switch rng.Intn(3) {
			case 0:
				n := rng.Intn(6)
				items := make([]model.Article, 0, n)
				for _, k := range rng.Perm(8)[:n] {
					items = append(items, model.Article{ID: k, AuthorID: rng.Intn(3)})
				}
				require.NoError(t, s.ReplaceAll(items))
				effective++
			case 1:
				ok, err := s.UpdateOne(id, func(a model.Article) model.Article { return a.WithBookmark(!a.IsBookmarked) })
				require.NoError(t, err)
				if ok {
					effective++
				}
			default:
				if s.DeleteOne(id) {
					effective++
				}
			}

			snap := s.Snapshot()
			seen := map[int]bool{}
			for _, item := range snap.Items {
				require.False(t, seen[item.ID], "duplicate id %d", item.ID)
				seen[item.ID] = true
			}
			require.Equal(t, uint64(effective), snap.Version)
		}

		assert.Equal(t, effective, notifications)
	}
}
