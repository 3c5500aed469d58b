package model

// Article data model. Only the bookmark flag changes after load; an article
// is otherwise replaced or removed as a whole.
type Article struct {
	ID           int    `json:"id"`
	Text         string `json:"text"`
	IsBookmarked bool   `json:"isBookmarked"`
	AuthorID     int    `json:"authorId"` // the author, may match nothing
}

// Key returns the store key of the article.
func (a Article) Key() int {
	return a.ID
}

// WithBookmark returns a copy of the article with the bookmark flag set.
func (a Article) WithBookmark(bookmarked bool) Article {
	a.IsBookmarked = bookmarked

	return a
}

// ArticleWithAuthor is an article joined with its author. It is derived on
// every join and never stored. A nil Author means no author matched.
type ArticleWithAuthor struct {
	Article Article `json:"article"`
	Author  *Author `json:"author,omitempty"`
}
