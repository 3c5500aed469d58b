// Package feed turns joined articles into display items.
package feed

import (
	"strings"
	"unicode/utf8"

	"github.com/SergeyParamoshkin/articlefeed/internal/model"
)

const (
	textDisplayLength = 300
	textTooLongDots   = "..."
)

// Item is one displayed article. Every field is ready to show as is.
type Item struct {
	ID         int    `json:"id" expr:"ID"`
	Title      string `json:"title" expr:"Title"`
	Text       string `json:"text" expr:"Text"`
	AuthorID   int    `json:"-" expr:"AuthorID"`
	AuthorName string `json:"authorName" expr:"AuthorName"`
	HasAuthor  bool   `json:"-" expr:"HasAuthor"`
	Bookmarked bool   `json:"isBookmarked" expr:"Bookmarked"`
}

// FromJoined builds the display item of one joined article. The title is the
// first word of the text and the body is the rest, shortened for display.
func FromJoined(joined model.ArticleWithAuthor) Item {
	title, body := splitTitle(joined.Article.Text)
	item := Item{
		ID:         joined.Article.ID,
		Title:      title,
		Text:       shorten(body),
		AuthorID:   joined.Article.AuthorID,
		Bookmarked: joined.Article.IsBookmarked,
	}
	if joined.Author != nil {
		item.AuthorName = joined.Author.Name
		item.HasAuthor = true
	}

	return item
}

// FromJoinedList maps FromJoined over a joined list, keeping its order.
func FromJoinedList(joined []model.ArticleWithAuthor) []Item {
	items := make([]Item, 0, len(joined))
	for _, j := range joined {
		items = append(items, FromJoined(j))
	}

	return items
}

// Find returns the item with id.
func Find(items []Item, id int) (Item, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}

	return Item{}, false
}

// splitTitle splits text at its first space. Text without a space is both
// title and body.
func splitTitle(text string) (string, string) {
	title, body, found := strings.Cut(text, " ")
	if !found {
		return text, text
	}

	return title, body
}

// shorten caps text at textDisplayLength runes, dots included.
func shorten(text string) string {
	if utf8.RuneCountInString(text) <= textDisplayLength {
		return text
	}

	runes := []rune(text)

	return string(runes[:textDisplayLength-len(textTooLongDots)]) + textTooLongDots
}
