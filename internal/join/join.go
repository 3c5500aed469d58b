// Package join maintains the left-outer join of articles against authors.
//
// An Engine watches two stores and republishes the joined list whenever
// either of them changes. Recomputation runs on a background goroutine and
// can be cancelled for good with CancelAll.
package join

import (
	"github.com/SergeyParamoshkin/articlefeed/internal/model"
)

// Result is one published join.
type Result struct {
	Items           []model.ArticleWithAuthor
	ArticlesVersion uint64
	AuthorsVersion  uint64
}

// Join pairs every article with the author whose id equals its AuthorID.
// Articles keep their order; an unmatched article gets a nil Author.
func Join(articles []model.Article, authors []model.Author) []model.ArticleWithAuthor {
	return joinWith(articles, indexAuthors(authors))
}

func indexAuthors(authors []model.Author) map[int]model.Author {
	lookup := make(map[int]model.Author, len(authors))
	for _, author := range authors {
		lookup[author.ID] = author
	}

	return lookup
}

func joinWith(articles []model.Article, lookup map[int]model.Author) []model.ArticleWithAuthor {
	out := make([]model.ArticleWithAuthor, 0, len(articles))
	for _, article := range articles {
		item := model.ArticleWithAuthor{Article: article}
		if author, ok := lookup[article.AuthorID]; ok {
			item.Author = &author
		}
		out = append(out, item)
	}

	return out
}
