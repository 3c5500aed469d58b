// Package datasource provides the external sources that loaders read from.
package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/SergeyParamoshkin/articlefeed/internal/loader"
	"github.com/SergeyParamoshkin/articlefeed/internal/model"
)

const (
	DefaultArticlesDelay = 300 * time.Millisecond
	DefaultAuthorsDelay  = 1300 * time.Millisecond
)

// Article fixture data
var fixtureArticles = []model.Article{
	{
		ID:       0,
		Text:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Nam dignissim dui tortor, a sagittis urna tincidunt convallis. Fusce lectus nisl, ullamcorper sit amet ligula vitae, congue pulvinar sem. Phasellus faucibus nunc in ipsum pellentesque viverra. Pellentesque habitant morbi tristique senectus et netus et malesuada fames ac turpis egestas. Quisque bibendum eros in luctus mattis. Donec maximus at nunc id blandit. In blandit ex a dignissim ullamcorper. Duis ultrices nisi sem, nec lobortis elit auctor in. Sed pharetra porta tellus, vel elementum sapien hendrerit id. Nullam fringilla ex vitae fringilla consequat. Praesent id nulla at nisl accumsan vehicula eu sit amet eros. Nullam viverra diam vel turpis dignissim, vel lobortis massa mollis. Morbi sed ante non neque posuere gravida at eget dui.",
		AuthorID: 1,
	},
	{
		ID:       1,
		Text:     "In euismod ante vitae auctor vestibulum. Quisque id nulla sed ipsum pharetra eleifend. Nam non accumsan massa. Nam iaculis sapien sit amet eleifend accumsan. Mauris placerat nibh eu vehicula faucibus. Vivamus gravida neque lorem, nec imperdiet quam maximus in. Aliquam ex sem, mattis sit amet sem eu, sodales vestibulum purus. Fusce tellus nunc, scelerisque fermentum egestas et, lobortis id sapien. Lorem ipsum dolor sit amet, consectetur adipiscing elit. Class aptent taciti sociosqu ad litora torquent per conubia nostra, per inceptos himenaeos. Orci varius natoque penatibus et magnis dis parturient montes, nascetur ridiculus mus. Maecenas auctor arcu et nisi scelerisque, sit amet mollis mi ultricies.",
		AuthorID: 0,
	},
	{
		ID:           2,
		Text:         "Sed lacinia massa iaculis efficitur ullamcorper. Aliquam vel malesuada nibh. Nullam pulvinar dolor augue, nec hendrerit dolor sodales ac. Maecenas quis auctor tortor, vitae cursus mi. Donec dapibus placerat elit et convallis. Curabitur viverra rhoncus urna, ut dignissim tellus. Aliquam at pulvinar nisi. Interdum et malesuada fames ac ante ipsum primis in faucibus. Cras finibus lorem eget dolor rhoncus, quis maximus ante vestibulum. Interdum et malesuada fames ac ante ipsum primis in faucibus. Aliquam erat volutpat. Aliquam id iaculis nisi, suscipit vulputate quam. Interdum et malesuada fames ac ante ipsum primis in faucibus.",
		IsBookmarked: true,
		AuthorID:     0,
	},
	{
		ID:       3,
		Text:     "Fusce vitae orci sed urna blandit consectetur. Cras vestibulum quis lorem ac ultricies. Donec turpis tellus, aliquam ut tortor nec, volutpat faucibus justo. Nunc a felis tempus, dapibus nulla id, hendrerit metus. Orci varius natoque penatibus et magnis dis parturient montes, nascetur ridiculus mus. Duis rhoncus placerat erat, sed vulputate mauris maximus vitae. Morbi risus dui, dictum commodo tortor id, imperdiet iaculis eros. Suspendisse sed nisi mollis, accumsan nibh sed, suscipit est. In vitae dolor at metus viverra vulputate at sodales felis. Vivamus at diam vel risus pellentesque rutrum.",
		AuthorID: 0,
	},
	{
		ID:           4,
		Text:         "Mauris sapien mi, porta non pharetra ac, consequat ut arcu. Class aptent taciti sociosqu ad litora torquent per conubia nostra, per inceptos himenaeos. Duis non diam felis. Quisque non leo venenatis erat congue ornare sed ac arcu. Mauris ultrices neque a leo gravida, sit amet scelerisque ligula finibus. Cras auctor nibh at risus pellentesque tincidunt. Integer accumsan, odio sodales laoreet aliquam, magna nunc eleifend ante, id rutrum velit urna id nisi.",
		IsBookmarked: true,
		AuthorID:     2,
	},
}

// Author fixture data
var fixtureAuthors = []model.Author{
	{ID: 0, Name: "John Smith"},
	{ID: 1, Name: "John Doe"},
	{ID: 2, Name: "Patrick"},
}

// FixtureOption configures a Fixture.
type FixtureOption func(*Fixture)

// WithDelays overrides the simulated latency of both collections.
func WithDelays(articles, authors time.Duration) FixtureOption {
	return func(f *Fixture) {
		f.articlesDelay = articles
		f.authorsDelay = authors
	}
}

// WithFailures makes the first n loads of each collection fail with
// loader.ErrSourceUnavailable.
func WithFailures(n int) FixtureOption {
	return func(f *Fixture) {
		f.articleFailures = n
		f.authorFailures = n
	}
}

// Fixture serves hardcoded articles and authors with simulated latency.
type Fixture struct {
	articlesDelay time.Duration
	authorsDelay  time.Duration

	mu              sync.Mutex
	articleFailures int
	authorFailures  int
}

// NewFixture creates the fixture source. Articles arrive faster than authors
// by default, so the first joins have no authors.
func NewFixture(opts ...FixtureOption) *Fixture {
	f := &Fixture{
		articlesDelay: DefaultArticlesDelay,
		authorsDelay:  DefaultAuthorsDelay,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Articles returns a loader for the fixture articles.
func (f *Fixture) Articles() loader.Loader[model.Article] {
	return loader.Func[model.Article](func(ctx context.Context) ([]model.Article, error) {
		if err := f.wait(ctx, f.articlesDelay, &f.articleFailures); err != nil {
			return nil, err
		}

		return append([]model.Article(nil), fixtureArticles...), nil
	})
}

// Authors returns a loader for the fixture authors.
func (f *Fixture) Authors() loader.Loader[model.Author] {
	return loader.Func[model.Author](func(ctx context.Context) ([]model.Author, error) {
		if err := f.wait(ctx, f.authorsDelay, &f.authorFailures); err != nil {
			return nil, err
		}

		return append([]model.Author(nil), fixtureAuthors...), nil
	})
}

func (f *Fixture) wait(ctx context.Context, delay time.Duration, failures *int) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if *failures > 0 {
		*failures--
		return loader.Unavailable("fixture", nil)
	}

	return nil
}
