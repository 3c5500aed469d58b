// Package articleresponse holds response payloads of the articles API.
package articleresponse

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/articlefeed/internal/authorpayload"
	"github.com/SergeyParamoshkin/articlefeed/internal/feed"
)

// ArticleResponse is the response payload for one display item.
//
// Render is called on the response first and then on each field that is a
// renderer, top-down like a middleware chain.
type ArticleResponse struct {
	*feed.Item

	Author *authorpayload.AuthorPayload `json:"author,omitempty"`
}

func NewArticleListResponse(items []feed.Item) []render.Renderer {
	list := make([]render.Renderer, 0, len(items))
	for i := range items {
		list = append(list, NewArticleResponse(&items[i]))
	}

	return list
}

func NewArticleResponse(item *feed.Item) *ArticleResponse {
	return &ArticleResponse{
		Item:   item,
		Author: authorpayload.NewAuthorPayloadResponse(item),
	}
}

func (rd *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
