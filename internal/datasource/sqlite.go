package datasource

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/SergeyParamoshkin/articlefeed/internal/loader"
	"github.com/SergeyParamoshkin/articlefeed/internal/model"
)

// Schema is the table layout the SQLite source reads from.
const Schema = `
CREATE TABLE IF NOT EXISTS authors (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS articles (
	id            INTEGER PRIMARY KEY,
	text          TEXT NOT NULL,
	is_bookmarked INTEGER NOT NULL DEFAULT 0,
	author_id     INTEGER NOT NULL
);`

// SQLite reads articles and authors from a SQLite database. It never writes:
// mutations live only in the in-memory stores.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path read-only and checks it responds.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, loader.Unavailable("sqlite", fmt.Errorf("open sqlite: %w", err))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, loader.Unavailable("sqlite", fmt.Errorf("ping sqlite: %w", err))
	}

	return &SQLite{db: db}, nil
}

// NewSQLite wraps an already opened database.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Articles returns a loader reading the articles table in id order.
func (s *SQLite) Articles() loader.Loader[model.Article] {
	return loader.Func[model.Article](func(ctx context.Context) ([]model.Article, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, text, is_bookmarked, author_id FROM articles ORDER BY id`)
		if err != nil {
			return nil, loader.Unavailable("sqlite", fmt.Errorf("query articles: %w", err))
		}
		defer rows.Close()

		articles := []model.Article{}
		for rows.Next() {
			var a model.Article
			if err := rows.Scan(&a.ID, &a.Text, &a.IsBookmarked, &a.AuthorID); err != nil {
				return nil, fmt.Errorf("scan article: %w", err)
			}
			articles = append(articles, a)
		}
		if err := rows.Err(); err != nil {
			return nil, loader.Unavailable("sqlite", fmt.Errorf("read articles: %w", err))
		}

		return articles, nil
	})
}

// Authors returns a loader reading the authors table in id order.
func (s *SQLite) Authors() loader.Loader[model.Author] {
	return loader.Func[model.Author](func(ctx context.Context) ([]model.Author, error) {
		rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM authors ORDER BY id`)
		if err != nil {
			return nil, loader.Unavailable("sqlite", fmt.Errorf("query authors: %w", err))
		}
		defer rows.Close()

		authors := []model.Author{}
		for rows.Next() {
			var a model.Author
			if err := rows.Scan(&a.ID, &a.Name); err != nil {
				return nil, fmt.Errorf("scan author: %w", err)
			}
			authors = append(authors, a)
		}
		if err := rows.Err(); err != nil {
			return nil, loader.Unavailable("sqlite", fmt.Errorf("read authors: %w", err))
		}

		return authors, nil
	})
}

// Seed creates the schema in db and inserts the fixture rows. It is meant for
// preparing demo and test databases.
func Seed(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range fixtureAuthors {
		if _, err := tx.ExecContext(ctx, `INSERT INTO authors (id, name) VALUES (?, ?)`, a.ID, a.Name); err != nil {
			return fmt.Errorf("seed author %d: %w", a.ID, err)
		}
	}
	for _, a := range fixtureArticles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO articles (id, text, is_bookmarked, author_id) VALUES (?, ?, ?, ?)`,
			a.ID, a.Text, a.IsBookmarked, a.AuthorID); err != nil {
			return fmt.Errorf("seed article %d: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	return nil
}

// SeedFile creates the database at path if needed and seeds it.
func SeedFile(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()

	return Seed(ctx, db)
}
