// Package authorpayload holds the author part of article responses.
package authorpayload

import (
	"net/http"

	"github.com/SergeyParamoshkin/articlefeed/internal/feed"
)

const RoleAuthor = "author"

type AuthorPayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// NewAuthorPayloadResponse returns the payload for the author of item, or nil
// when the item has none.
func NewAuthorPayloadResponse(item *feed.Item) *AuthorPayload {
	if !item.HasAuthor {
		return nil
	}

	return &AuthorPayload{ID: item.AuthorID, Name: item.AuthorName}
}

func (a *AuthorPayload) Render(w http.ResponseWriter, r *http.Request) error {
	a.Role = RoleAuthor

	return nil
}
