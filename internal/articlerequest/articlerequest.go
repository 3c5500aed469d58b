// Package articlerequest holds request payloads of the articles API.
package articlerequest

import (
	"errors"
	"net/http"
)

var ErrMissingBookmarked = errors.New("missing required bookmarked field")

// BookmarkRequest is the body of PUT /articles/{articleID}/bookmark.
type BookmarkRequest struct {
	// Bookmarked is a pointer so an absent field can be told apart from false.
	Bookmarked *bool `json:"bookmarked"`
}

// Bind runs after the body is decoded.
func (b *BookmarkRequest) Bind(r *http.Request) error {
	if b.Bookmarked == nil {
		return ErrMissingBookmarked
	}

	return nil
}
