// Package search finds pages by title, slug and body.
package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
)

// Record is what gets indexed for one page.
type Record struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	IsPublic bool   `json:"isPublic"`
}

type Result struct {
	Path     string `json:"path"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet,omitempty"`
	IsPublic bool   `json:"isPublic"`
}

type Query struct {
	Text           string
	IncludePrivate bool
	Limit          int
}

const defaultLimit = 20

func (q Query) limit() int {
	if q.Limit <= 0 {
		return defaultLimit
	}
	return q.Limit
}

type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

type Indexer interface {
	Index(ctx context.Context, rec Record) error
	Delete(ctx context.Context, path string) error
}

// RecordID derives the index primary key from a page path. Paths contain
// characters the index rejects in ids.
func RecordID(path string) string {
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}
