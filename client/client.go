// Package client is a Go client for the articlefeed HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

var ErrNotFound = errors.New("client: article not found")

// StatusError is returned for any unexpected response status.
type StatusError struct {
	Code   int
	Status string `json:"status"`
	Detail string `json:"error"`
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("client: %d %s", e.Code, e.Status)
	}

	return fmt.Sprintf("client: %d %s: %s", e.Code, e.Status, e.Detail)
}

type Client struct {
	http.Client
	Addr string
}

type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type Article struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Text         string  `json:"text"`
	AuthorName   string  `json:"authorName"`
	IsBookmarked bool    `json:"isBookmarked"`
	Author       *Author `json:"author,omitempty"`
}

func (c *Client) Ping(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/ping", nil, http.StatusOK)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// ListArticles returns the current articles. A non-empty filter is an
// expression over item fields, such as "Bookmarked".
func (c *Client) ListArticles(ctx context.Context, filter string) ([]Article, error) {
	path := "/articles"
	if filter != "" {
		path += "?" + url.Values{"filter": {filter}}.Encode()
	}

	var articles []Article
	if err := c.doJSON(ctx, http.MethodGet, path, nil, http.StatusOK, &articles); err != nil {
		return nil, err
	}

	return articles, nil
}

func (c *Client) GetArticle(ctx context.Context, id int) (Article, error) {
	var article Article
	err := c.doJSON(ctx, http.MethodGet, articlePath(id), nil, http.StatusOK, &article)

	return article, err
}

// SetBookmark sets the bookmark state of article id and returns the article
// as it will appear once the change is applied.
func (c *Client) SetBookmark(ctx context.Context, id int, bookmarked bool) (Article, error) {
	req, err := json.Marshal(struct {
		Bookmarked bool `json:"bookmarked"`
	}{bookmarked})
	if err != nil {
		return Article{}, err
	}

	var article Article
	err = c.doJSON(ctx, http.MethodPut, articlePath(id)+"/bookmark", req, http.StatusAccepted, &article)

	return article, err
}

// DeleteArticle removes article id and returns it.
func (c *Client) DeleteArticle(ctx context.Context, id int) (Article, error) {
	var article Article
	err := c.doJSON(ctx, http.MethodDelete, articlePath(id), nil, http.StatusAccepted, &article)

	return article, err
}

// Refresh asks the server to reload articles and authors from its source.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/articles/refresh", nil, http.StatusNoContent)

	return err
}

func articlePath(id int) string {
	return "/articles/" + strconv.Itoa(id)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, want int, out any) error {
	data, err := c.do(ctx, method, path, body, want)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, want int) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Addr+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case want:
		return data, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		statusErr := &StatusError{Code: resp.StatusCode}
		if json.Unmarshal(data, statusErr) != nil || statusErr.Status == "" {
			statusErr.Status = http.StatusText(resp.StatusCode)
		}

		return nil, statusErr
	}
}
