package article

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SergeyParamoshkin/articlefeed/internal/errresponse"
	"github.com/SergeyParamoshkin/articlefeed/internal/feed"
)

type ctxKey int8

const ctxKeyItem ctxKey = iota

// ArticleCtx loads the item named by the articleID URL parameter from the
// latest published list. Unknown ids stop here with a 404.
func (a *API) ArticleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "articleID")
		id, err := strconv.Atoi(raw)
		if err != nil {
			a.render(w, r, errresponse.ErrInvalidRequest(fmt.Errorf("article id %q: %w", raw, err)))

			return
		}

		item, ok := feed.Find(a.view.Items(), id)
		if !ok {
			a.render(w, r, errresponse.ErrNotFound)

			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyItem, item)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// itemFromContext returns the item stored by ArticleCtx. Handlers using it
// are always mounted below that middleware.
func itemFromContext(ctx context.Context) feed.Item {
	item, _ := ctx.Value(ctxKeyItem).(feed.Item)

	return item
}
