package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/articlefeed/internal/feed"
	"github.com/SergeyParamoshkin/articlefeed/internal/join"
	"github.com/SergeyParamoshkin/articlefeed/internal/loader"
	"github.com/SergeyParamoshkin/articlefeed/internal/observable"
)

// ArticlesView is the article list state of one screen. It starts loading on
// creation, keeps display items up to date and handles user actions.
type ArticlesView struct {
	id        string
	container *Container
	engine    *join.Engine
	items     *observable.Channel[[]feed.Item]
	logger    *zap.SugaredLogger

	unsubscribe func()
	refresh     *loader.Task
	closeOnce   sync.Once
}

func newArticlesView(c *Container) *ArticlesView {
	id := uuid.NewString()
	logger := c.logger.With("view", id)

	v := &ArticlesView{
		id:        id,
		container: c,
		items:     observable.New[[]feed.Item](),
		logger:    logger,
	}
	v.engine = join.New(c.articles, c.authors, join.WithLogger(logger), join.WithMeter(c.meter))
	v.unsubscribe = v.engine.Results().Subscribe(func(result join.Result) {
		v.items.Publish(feed.FromJoinedList(result.Items))
	})
	v.refresh = c.RefreshAsync(context.Background())

	logger.Debugw("view created")

	return v
}

// ID returns the view instance id.
func (v *ArticlesView) ID() string {
	return v.id
}

// Subscribe registers handler for item lists, replaying the current one.
func (v *ArticlesView) Subscribe(handler func([]feed.Item)) (unsubscribe func()) {
	return v.items.Subscribe(handler)
}

// Items returns the latest item list.
func (v *ArticlesView) Items() []feed.Item {
	items, _ := v.items.Latest()

	return items
}

// Loading returns the handle of the load started with the view.
func (v *ArticlesView) Loading() *loader.Task {
	return v.refresh
}

// OnBookmarkPressed flips the bookmark of item. The change shows up in the
// next published list.
func (v *ArticlesView) OnBookmarkPressed(item feed.Item) {
	v.container.ToggleBookmark(item.ID, !item.Bookmarked)
}

// OnDeletePressed removes item.
func (v *ArticlesView) OnDeletePressed(item feed.Item) {
	v.container.DeleteArticle(item.ID)
}

// Close stops the load and the join engine of this view and waits for both.
// The stores are left as they are.
func (v *ArticlesView) Close() {
	v.closeOnce.Do(func() {
		v.refresh.Cancel()
		v.engine.CancelAll()
		v.unsubscribe()

		<-v.refresh.Done()
		<-v.engine.Done()
		v.logger.Debugw("view closed")
	})
}
