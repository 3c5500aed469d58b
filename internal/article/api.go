// Package article serves the article feed over HTTP.
package article

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/articlefeed/internal/app"
	"github.com/SergeyParamoshkin/articlefeed/internal/articlerequest"
	"github.com/SergeyParamoshkin/articlefeed/internal/articleresponse"
	"github.com/SergeyParamoshkin/articlefeed/internal/errresponse"
	"github.com/SergeyParamoshkin/articlefeed/internal/feed"
	"github.com/SergeyParamoshkin/articlefeed/internal/loader"
)

// API handles article requests against one long-lived view.
type API struct {
	container *app.Container
	view      *app.ArticlesView
	logger    *zap.SugaredLogger
}

func NewAPI(container *app.Container, view *app.ArticlesView, logger *zap.SugaredLogger) *API {
	return &API{
		container: container,
		view:      view,
		logger:    logger,
	}
}

// Routes registers the article routes on r, which is expected to be mounted
// at /articles. stream, when non-nil, serves GET /stream.
func (a *API) Routes(stream http.Handler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/", a.ListArticles)
		r.Post("/refresh", a.Refresh)
		if stream != nil {
			r.Method(http.MethodGet, "/stream", stream)
		}

		r.Route("/{articleID}", func(r chi.Router) {
			r.Use(a.ArticleCtx)
			r.Get("/", a.GetArticle)
			r.Put("/bookmark", a.UpdateBookmark)
			r.Delete("/", a.DeleteArticle)
		})
	}
}

// ListArticles renders the current items, narrowed by the optional filter
// query parameter.
func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	filter, err := feed.CompileFilter(r.URL.Query().Get("filter"))
	if err != nil {
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	items, err := filter.Apply(a.view.Items())
	if err != nil {
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	if err := render.RenderList(w, r, articleresponse.NewArticleListResponse(items)); err != nil {
		a.render(w, r, errresponse.ErrRender(err))
	}
}

// GetArticle renders the item loaded by ArticleCtx.
func (a *API) GetArticle(w http.ResponseWriter, r *http.Request) {
	item := itemFromContext(r.Context())

	a.render(w, r, articleresponse.NewArticleResponse(&item))
}

// UpdateBookmark sets the bookmark state of the article. The response carries
// the item as it will look once the change is published.
func (a *API) UpdateBookmark(w http.ResponseWriter, r *http.Request) {
	item := itemFromContext(r.Context())

	data := &articlerequest.BookmarkRequest{}
	if err := render.Bind(r, data); err != nil {
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	if !a.container.ToggleBookmark(item.ID, *data.Bookmarked) {
		a.render(w, r, errresponse.ErrNotFound)

		return
	}
	item.Bookmarked = *data.Bookmarked

	render.Status(r, http.StatusAccepted)
	a.render(w, r, articleresponse.NewArticleResponse(&item))
}

// DeleteArticle removes the article and renders the removed item.
func (a *API) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	item := itemFromContext(r.Context())

	if !a.container.DeleteArticle(item.ID) {
		a.render(w, r, errresponse.ErrNotFound)

		return
	}

	render.Status(r, http.StatusAccepted)
	a.render(w, r, articleresponse.NewArticleResponse(&item))
}

// Refresh reloads both stores from the source and waits for the result.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	err := a.container.Refresh(r.Context())
	switch {
	case err == nil:
		render.NoContent(w, r)
	case errors.Is(err, loader.ErrSourceUnavailable):
		a.logger.Warnw("refresh failed", "error", err)
		a.render(w, r, errresponse.ErrUnavailable(err))
	default:
		a.logger.Errorw("refresh failed", "error", err)
		a.render(w, r, errresponse.ErrInternal(err))
	}
}

func (a *API) render(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		a.logger.Errorw("render response", "error", err)
	}
}
