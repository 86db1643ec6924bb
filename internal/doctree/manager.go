package doctree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
)

type SaveInput struct {
	Path     string
	Content  string
	Title    string
	IsPublic *bool
	Slug     string
	// Version overrides the stored version when > 0.
	Version int
}

type SaveResult struct {
	Node    *PageNode
	Created bool
	// VisibilityChanged is set when an existing node switched isPublic, which
	// also changes what anonymous callers see below it.
	VisibilityChanged bool
}

type CheckReport struct {
	MissingContent []string `json:"missing_content"`
	DuplicatePaths []string `json:"duplicate_paths"`
	DuplicateSlugs []string `json:"duplicate_slugs"`
}

func (r *CheckReport) OK() bool {
	return len(r.MissingContent) == 0 && len(r.DuplicatePaths) == 0 && len(r.DuplicateSlugs) == 0
}

// Manager is the single writer of a Store. Every mutation re-reads meta.json
// under an in-process mutex and an advisory file lock, applies the change and
// writes the tree back, so concurrent saves never drop each other's update.
// Readers are served from the tree produced by the last load or mutation.
type Manager struct {
	store *Store

	mu   sync.RWMutex
	tree *Tree
	idx  *index

	now  func() time.Time
	lock func(path string) (func() error, error)
}

func NewManager(ctx context.Context, store *Store) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(store.MetaPath()), 0o755); err != nil {
		return nil, fmt.Errorf("create meta dir: %w", err)
	}
	m := &Manager{
		store: store,
		now:   time.Now,
		lock:  lockFile,
	}
	if err := m.Reload(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) Store() *Store {
	return m.store
}

// Reload replaces the in-memory tree with the content of meta.json.
func (m *Manager) Reload(ctx context.Context) error {
	t, err := m.store.Load()
	if err != nil {
		return err
	}
	idx := buildIndex(t)
	logDuplicates(ctx, idx)
	m.mu.Lock()
	m.tree, m.idx = t, idx
	m.mu.Unlock()
	return nil
}

func logDuplicates(ctx context.Context, idx *index) {
	if len(idx.dupPaths) == 0 && len(idx.dupSlugs) == 0 {
		return
	}
	logutil.GetLogger(ctx).Warn("document tree contains duplicates, first match in tree order wins",
		zap.Strings("paths", idx.dupPaths),
		zap.Strings("slugs", idx.dupSlugs),
	)
}

func (in SaveInput) validate() (string, error) {
	if strings.TrimSpace(in.Path) == "" {
		return "", appErr.Invalid("path is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", appErr.Invalid("title is required")
	}
	if in.IsPublic == nil {
		return "", appErr.Invalid("isPublic is required")
	}
	if strings.TrimSpace(in.Slug) == "" {
		return "", appErr.Invalid("slug is required")
	}
	return NormalizePath(in.Path)
}

// SaveDocument creates or updates the node stored at in.Path and writes its
// content. The content file is written first; if meta.json cannot be written
// afterwards the content file is put back the way it was.
func (m *Manager) SaveDocument(ctx context.Context, in SaveInput) (*SaveResult, error) {
	p, err := in.validate()
	if err != nil {
		return nil, err
	}
	slug := strings.TrimSpace(in.Slug)
	result := &SaveResult{}
	err = m.mutate(ctx, func(t *Tree, idx *index) (func() error, error) {
		if owner := idx.slugOwner(slug, p); owner != nil {
			return nil, appErr.Conflict("slug %q is already used by %s", slug, owner.Path)
		}
		snap, err := m.store.snapshot(p)
		if err != nil {
			return nil, err
		}
		now := m.now().UTC()
		node := idx.byPath[p]
		if node != nil {
			result.VisibilityChanged = node.IsPublic != *in.IsPublic
			node.Title = in.Title
			node.IsPublic = *in.IsPublic
			node.Slug = slug
			node.LastModified = now
			if in.Version > 0 {
				node.Version = in.Version
			} else {
				node.Version++
			}
		} else {
			version := in.Version
			if version <= 0 {
				version = 1
			}
			node = &PageNode{
				Slug:         slug,
				Title:        in.Title,
				Path:         p,
				IsPublic:     *in.IsPublic,
				Version:      version,
				LastModified: now,
				Children:     []*PageNode{},
			}
			t.Pages = append(t.Pages, node)
			result.Created = true
		}
		if err := m.store.WriteContent(p, []byte(in.Content)); err != nil {
			return nil, err
		}
		result.Node = node.Clone()
		return func() error { return m.store.restore(snap) }, nil
	})
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document saved",
		zap.String("path", p),
		zap.String("slug", slug),
		zap.Int("version", result.Node.Version),
		zap.Bool("created", result.Created),
	)
	return result, nil
}

// Rename changes the title of the node at p and derives its new slug.
func (m *Manager) Rename(ctx context.Context, rawPath, title string) (*PageNode, error) {
	p, err := NormalizePath(rawPath)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	slug := Slugify(title)
	if slug == "" {
		return nil, appErr.Invalid("title must contain letters or digits")
	}
	var renamed *PageNode
	err = m.mutate(ctx, func(t *Tree, idx *index) (func() error, error) {
		node := idx.byPath[p]
		if node == nil {
			return nil, appErr.NotFound("no page at %s", p)
		}
		if owner := idx.slugOwner(slug, p); owner != nil {
			return nil, appErr.Conflict("slug %q is already used by %s", slug, owner.Path)
		}
		node.Title = title
		node.Slug = slug
		node.LastModified = m.now().UTC()
		renamed = node.Clone()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// UpdateSortOrder sets the sort order of the node at p and reorders its
// siblings by sort order, keeping the relative order of equal values.
func (m *Manager) UpdateSortOrder(ctx context.Context, rawPath string, order int) error {
	p, err := NormalizePath(rawPath)
	if err != nil {
		return err
	}
	return m.mutate(ctx, func(t *Tree, idx *index) (func() error, error) {
		node := idx.byPath[p]
		if node == nil {
			return nil, appErr.NotFound("no page at %s", p)
		}
		node.SortOrder = order
		siblings := idx.siblings(t, node)
		sort.SliceStable(*siblings, func(i, j int) bool {
			return (*siblings)[i].SortOrder < (*siblings)[j].SortOrder
		})
		return nil, nil
	})
}

// Delete removes the node at p and its content file. Nodes with children
// must be emptied first.
func (m *Manager) Delete(ctx context.Context, rawPath string) error {
	p, err := NormalizePath(rawPath)
	if err != nil {
		return err
	}
	err = m.mutate(ctx, func(t *Tree, idx *index) (func() error, error) {
		node := idx.byPath[p]
		if node == nil {
			return nil, appErr.NotFound("no page at %s", p)
		}
		if len(node.Children) > 0 {
			return nil, appErr.Conflict("page %s still has children", p)
		}
		siblings := idx.siblings(t, node)
		for i, n := range *siblings {
			if n == node {
				*siblings = append((*siblings)[:i], (*siblings)[i+1:]...)
				break
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	if err := m.store.RemoveContent(p); err != nil {
		logutil.GetLogger(ctx).Warn("remove content file failed", zap.String("path", p), zap.Error(err))
	}
	return nil
}

// mutate runs fn against a fresh copy of the tree read from disk and persists
// the result. fn may return an undo func that runs when persisting fails.
func (m *Manager) mutate(ctx context.Context, fn func(t *Tree, idx *index) (func() error, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	unlock, err := m.lock(m.store.MetaPath() + ".lock")
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			logutil.GetLogger(ctx).Warn("release meta lock failed", zap.Error(err))
		}
	}()

	t, err := m.store.Load()
	if err != nil {
		return err
	}
	undo, err := fn(t, buildIndex(t))
	if err != nil {
		return err
	}
	if err := m.store.Save(t); err != nil {
		if undo != nil {
			if undoErr := undo(); undoErr != nil {
				logutil.GetLogger(ctx).Error("rollback content file failed", zap.Error(undoErr))
				return fmt.Errorf("%w (rollback failed: %v)", err, undoErr)
			}
		}
		return err
	}
	m.tree = t
	m.idx = buildIndex(t)
	return nil
}

// Tree returns a copy of the page hierarchy. Private pages and everything
// below them are left out unless includePrivate is set.
func (m *Manager) Tree(includePrivate bool) []*PageNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if includePrivate {
		return cloneNodes(m.tree.Pages)
	}
	return PublicOnly(m.tree.Pages)
}

// Nodes returns copies of all visible nodes in tree order, without children.
func (m *Manager) Nodes(includePrivate bool) []*PageNode {
	var out []*PageNode
	visible := &Tree{Pages: m.Tree(includePrivate)}
	visible.Walk(func(n, _ *PageNode) bool {
		cp := *n
		cp.Children = nil
		out = append(out, &cp)
		return true
	})
	return out
}

func (m *Manager) GetByPath(rawPath string) (*PageNode, error) {
	p, err := NormalizePath(rawPath)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	node := m.idx.byPath[p]
	if node == nil {
		return nil, appErr.NotFound("no page at %s", p)
	}
	return node.Clone(), nil
}

func (m *Manager) GetBySlug(slug string) (*PageNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	node := m.idx.bySlug[slug]
	if node == nil {
		return nil, appErr.NotFound("no page with slug %s", slug)
	}
	return node.Clone(), nil
}

func (m *Manager) visible(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	node := m.idx.byPath[p]
	return node != nil && m.idx.visible(node)
}

// PubliclyVisible reports whether anonymous callers can see the page at
// rawPath: the page and all of its ancestors must be public.
func (m *Manager) PubliclyVisible(rawPath string) bool {
	p, err := NormalizePath(rawPath)
	if err != nil {
		return false
	}
	return m.visible(p)
}

// Subtree returns the node at rawPath followed by all of its descendants in
// tree order, as copies without children.
func (m *Manager) Subtree(rawPath string) ([]*PageNode, error) {
	p, err := NormalizePath(rawPath)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	node := m.idx.byPath[p]
	if node == nil {
		return nil, appErr.NotFound("no page at %s", p)
	}
	var out []*PageNode
	walkNodes([]*PageNode{node}, nil, func(n, _ *PageNode) bool {
		cp := *n
		cp.Children = nil
		out = append(out, &cp)
		return true
	})
	return out, nil
}

// ReadContent returns the content stored at rawPath. Content of pages hidden
// from anonymous callers, and of files no page points at, is only returned
// with includePrivate.
func (m *Manager) ReadContent(ctx context.Context, rawPath string, includePrivate bool) ([]byte, error) {
	p, err := NormalizePath(rawPath)
	if err != nil {
		return nil, err
	}
	if !includePrivate && !m.visible(p) {
		return nil, appErr.NotFound("no page at %s", p)
	}
	data, err := m.store.ReadContent(p)
	if os.IsNotExist(err) {
		return nil, appErr.NotFound("no content at %s", p)
	}
	if err != nil {
		logutil.GetLogger(ctx).Error("read content failed", zap.String("path", p), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// Check reads meta.json from disk and reports nodes without content file and
// duplicated paths or slugs.
func (m *Manager) Check(ctx context.Context) (*CheckReport, error) {
	t, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	idx := buildIndex(t)
	report := &CheckReport{
		MissingContent: []string{},
		DuplicatePaths: idx.dupPaths,
		DuplicateSlugs: idx.dupSlugs,
	}
	t.Walk(func(n, _ *PageNode) bool {
		p := normalizeStored(n.Path)
		if !m.store.ContentExists(p) {
			report.MissingContent = append(report.MissingContent, p)
		}
		return true
	})
	if report.DuplicatePaths == nil {
		report.DuplicatePaths = []string{}
	}
	if report.DuplicateSlugs == nil {
		report.DuplicateSlugs = []string{}
	}
	return report, nil
}
