// Package doctree manages the page hierarchy persisted in meta.json and the
// content files it points at.
package doctree

import (
	"path"
	"regexp"
	"strings"
	"time"

	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
)

// ContentRootPrefix is stripped from incoming paths; older clients send the
// path relative to the application root instead of the content root.
const ContentRootPrefix = "app/docs/"

type PageNode struct {
	Slug         string      `json:"slug"`
	Title        string      `json:"title"`
	Path         string      `json:"path"`
	IsPublic     bool        `json:"isPublic"`
	Version      int         `json:"version"`
	LastModified time.Time   `json:"lastModified"`
	SortOrder    int         `json:"sortOrder,omitempty"`
	Children     []*PageNode `json:"children"`
}

type Tree struct {
	Pages []*PageNode `json:"pages"`
}

// Clone returns a deep copy of n.
func (n *PageNode) Clone() *PageNode {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Children = cloneNodes(n.Children)
	return &cp
}

func cloneNodes(nodes []*PageNode) []*PageNode {
	out := make([]*PageNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Clone())
	}
	return out
}

func (t *Tree) Clone() *Tree {
	return &Tree{Pages: cloneNodes(t.Pages)}
}

// Walk visits every node depth first, in tree order. fn returning false stops
// the walk.
func (t *Tree) Walk(fn func(n, parent *PageNode) bool) {
	walkNodes(t.Pages, nil, fn)
}

func walkNodes(nodes []*PageNode, parent *PageNode, fn func(n, parent *PageNode) bool) bool {
	for _, n := range nodes {
		if !fn(n, parent) {
			return false
		}
		if !walkNodes(n.Children, n, fn) {
			return false
		}
	}
	return true
}

// PublicOnly drops private nodes together with everything below them.
func PublicOnly(nodes []*PageNode) []*PageNode {
	out := make([]*PageNode, 0, len(nodes))
	for _, n := range nodes {
		if !n.IsPublic {
			continue
		}
		cp := *n
		cp.Children = PublicOnly(n.Children)
		out = append(out, &cp)
	}
	return out
}

// NormalizePath strips the content root prefix and cleans p. Paths leaving the
// content root are rejected.
func NormalizePath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimPrefix(p, ContentRootPrefix)
	if p == "" {
		return "", appErr.Invalid("path is required")
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
		return "", appErr.Invalid("path %q is outside the content root", p)
	}
	return cleaned, nil
}

// normalizeStored is NormalizePath for paths already persisted in meta.json;
// a malformed entry keeps its raw value so it never matches a valid request.
func normalizeStored(p string) string {
	n, err := NormalizePath(p)
	if err != nil {
		return p
	}
	return n
}

var slugSeparator = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL safe slug from a title.
func Slugify(title string) string {
	s := slugSeparator.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	return strings.Trim(s, "-")
}
