package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/doctree"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
	"github.com/xxxsen/yawiki/internal/render"
	"github.com/xxxsen/yawiki/internal/search"
)

const FormatHTML = "html"

type SavePageInput struct {
	doctree.SaveInput
	// Format "html" marks Content as rich text editor output.
	Format string
}

type PageView struct {
	Node *doctree.PageNode `json:"node"`
	*render.Page
}

type searchIndex interface {
	search.Searcher
	search.Indexer
}

// PageService combines the document tree with rendering and search.
type PageService struct {
	tree     *doctree.Manager
	renderer *render.Renderer
	index    searchIndex
}

func NewPageService(tree *doctree.Manager, renderer *render.Renderer, index searchIndex) *PageService {
	return &PageService{tree: tree, renderer: renderer, index: index}
}

func (s *PageService) Save(ctx context.Context, in SavePageInput) (*doctree.SaveResult, error) {
	switch strings.ToLower(strings.TrimSpace(in.Format)) {
	case "", "markdown", "md", "mdx":
	case FormatHTML:
		md, err := s.renderer.HTMLToMarkdown(in.Content)
		if err != nil {
			return nil, appErr.Invalid("%s", err.Error())
		}
		in.Content = md
	default:
		return nil, appErr.Invalid("unsupported format %q", in.Format)
	}
	res, err := s.tree.SaveDocument(ctx, in.SaveInput)
	if err != nil {
		return nil, err
	}
	s.renderer.Invalidate(pageKey(res.Node.Path))
	s.reindex(ctx, res.Node, in.Content)
	if res.VisibilityChanged {
		s.reindexBelow(ctx, res.Node.Path)
	}
	return res, nil
}

// pageKey is the normalized form of a stored path. Render cache entries and
// search records are keyed by it, whatever form meta.json holds.
func pageKey(stored string) string {
	p, err := doctree.NormalizePath(stored)
	if err != nil {
		return stored
	}
	return p
}

func (s *PageService) reindex(ctx context.Context, node *doctree.PageNode, body string) {
	p := pageKey(node.Path)
	rec := search.Record{
		ID:       search.RecordID(p),
		Path:     p,
		Slug:     node.Slug,
		Title:    node.Title,
		Body:     body,
		IsPublic: s.tree.PubliclyVisible(p),
	}
	if err := s.index.Index(ctx, rec); err != nil {
		logutil.GetLogger(ctx).Warn("index page failed", zap.String("path", p), zap.Error(err))
	}
}

// reindexNodes pushes nodes with their current content and returns how many
// were submitted.
func (s *PageService) reindexNodes(ctx context.Context, nodes []*doctree.PageNode) int {
	count := 0
	for _, node := range nodes {
		body, err := s.tree.ReadContent(ctx, node.Path, true)
		if err != nil {
			logutil.GetLogger(ctx).Warn("skip page without content", zap.String("path", node.Path), zap.Error(err))
			continue
		}
		s.reindex(ctx, node, string(body))
		count++
	}
	return count
}

// reindexBelow refreshes the descendants of path, whose visibility follows
// their ancestors.
func (s *PageService) reindexBelow(ctx context.Context, path string) {
	nodes, err := s.tree.Subtree(path)
	if err != nil {
		logutil.GetLogger(ctx).Warn("load subtree failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.reindexNodes(ctx, nodes[1:])
}

func (s *PageService) Tree(includePrivate bool) []*doctree.PageNode {
	return s.tree.Tree(includePrivate)
}

func (s *PageService) Content(ctx context.Context, path string, includePrivate bool) ([]byte, error) {
	return s.tree.ReadContent(ctx, path, includePrivate)
}

// Page renders the page published under slug.
func (s *PageService) Page(ctx context.Context, slug string, includePrivate bool) (*PageView, error) {
	node, err := s.tree.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if !includePrivate && !s.tree.PubliclyVisible(node.Path) {
		return nil, appErr.NotFound("no page with slug %s", slug)
	}
	node.Children = nil
	source, err := s.tree.ReadContent(ctx, node.Path, true)
	if err != nil {
		return nil, err
	}
	page, err := s.renderer.Render(ctx, render.CacheKey(pageKey(node.Path), node.Version), source)
	if err != nil {
		return nil, err
	}
	return &PageView{Node: node, Page: page}, nil
}

func (s *PageService) Search(ctx context.Context, text string, includePrivate bool) ([]search.Result, error) {
	if strings.TrimSpace(text) == "" {
		return []search.Result{}, nil
	}
	return s.index.Search(ctx, search.Query{Text: text, IncludePrivate: includePrivate})
}

func (s *PageService) Rename(ctx context.Context, path, title string) (*doctree.PageNode, error) {
	node, err := s.tree.Rename(ctx, path, title)
	if err != nil {
		return nil, err
	}
	body, err := s.tree.ReadContent(ctx, node.Path, true)
	if err != nil && !appErr.IsNotFound(err) {
		return nil, err
	}
	s.reindex(ctx, node, string(body))
	return node, nil
}

func (s *PageService) UpdateSortOrder(ctx context.Context, path string, order int) error {
	return s.tree.UpdateSortOrder(ctx, path, order)
}

func (s *PageService) Delete(ctx context.Context, path string) error {
	p, err := doctree.NormalizePath(path)
	if err != nil {
		return err
	}
	if err := s.tree.Delete(ctx, p); err != nil {
		return err
	}
	s.renderer.Invalidate(p)
	if err := s.index.Delete(ctx, p); err != nil {
		logutil.GetLogger(ctx).Warn("remove page from index failed", zap.String("path", p), zap.Error(err))
	}
	return nil
}

func (s *PageService) Check(ctx context.Context) (*doctree.CheckReport, error) {
	return s.tree.Check(ctx)
}

// ReindexAll pushes every page to the search index, for example after the
// index was recreated. It returns the number of pages submitted.
func (s *PageService) ReindexAll(ctx context.Context) int {
	return s.reindexNodes(ctx, s.tree.Nodes(true))
}
