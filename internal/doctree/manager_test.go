package doctree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/natefinch/atomic"
	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func boolPtr(v bool) *bool {
	return &v
}

func newTestManager(t *testing.T) (*Manager, *Store) {
	t.Helper()
	store := NewStore(t.TempDir(), "meta.json")
	m, err := NewManager(context.Background(), store)
	require.NoError(t, err)
	m.now = func() time.Time { return fixedNow }
	return m, store
}

func writeMeta(t *testing.T, store *Store, tree *Tree) {
	t.Helper()
	require.NoError(t, store.Save(tree))
}

func readMeta(t *testing.T, store *Store) *Tree {
	t.Helper()
	tree, err := store.Load()
	require.NoError(t, err)
	return tree
}

func TestSaveDocumentIntoEmptyTree(t *testing.T) {
	m, store := newTestManager(t)

	res, err := m.SaveDocument(context.Background(), SaveInput{
		Path:     "guide/intro.md",
		Content:  "# Hi",
		Title:    "Intro",
		IsPublic: boolPtr(true),
		Slug:     "intro",
	})
	require.NoError(t, err)
	require.True(t, res.Created)

	want := &Tree{Pages: []*PageNode{{
		Slug:         "intro",
		Title:        "Intro",
		Path:         "guide/intro.md",
		IsPublic:     true,
		Version:      1,
		LastModified: fixedNow,
		Children:     []*PageNode{},
	}}}
	if diff := cmp.Diff(want, readMeta(t, store)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}

	content, err := os.ReadFile(filepath.Join(store.Root(), "guide", "intro.md"))
	require.NoError(t, err)
	require.Equal(t, "# Hi", string(content))

	var raw map[string][]map[string]interface{}
	data, err := os.ReadFile(store.MetaPath())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, []interface{}{}, raw["pages"][0]["children"])
}

func TestSaveDocumentUpdatesMatchOnly(t *testing.T) {
	m, store := newTestManager(t)
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	writeMeta(t, store, &Tree{Pages: []*PageNode{
		{Slug: "a", Title: "A", Path: "a.md", IsPublic: true, Version: 3, LastModified: old, Children: []*PageNode{
			{Slug: "b", Title: "B", Path: "a/b.md", Version: 2, LastModified: old, Children: []*PageNode{}},
		}},
		{Slug: "c", Title: "C", Path: "c.md", Version: 1, LastModified: old, Children: []*PageNode{}},
	}})
	require.NoError(t, m.Reload(context.Background()))
	before := readMeta(t, store)

	res, err := m.SaveDocument(context.Background(), SaveInput{
		Path:     "app/docs/a/b.md",
		Content:  "nested",
		Title:    "B2",
		IsPublic: boolPtr(true),
		Slug:     "b2",
	})
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Equal(t, 3, res.Node.Version)

	after := readMeta(t, store)
	require.Len(t, after.Pages, 2)
	child := after.Pages[0].Children[0]
	require.Equal(t, "B2", child.Title)
	require.Equal(t, "b2", child.Slug)
	require.True(t, child.IsPublic)
	require.Equal(t, 3, child.Version)
	require.Equal(t, fixedNow, child.LastModified)

	ignoreChildren := cmpopts.IgnoreFields(PageNode{}, "Children")
	if diff := cmp.Diff(before.Pages[0], after.Pages[0], ignoreChildren); diff != "" {
		t.Fatalf("parent changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before.Pages[1], after.Pages[1]); diff != "" {
		t.Fatalf("sibling changed (-before +after):\n%s", diff)
	}
}

func TestSaveDocumentVersioning(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	in := SaveInput{Path: "v.md", Title: "V", IsPublic: boolPtr(false), Slug: "v"}

	res, err := m.SaveDocument(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 1, res.Node.Version)

	res, err = m.SaveDocument(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 2, res.Node.Version)

	in.Version = 10
	res, err = m.SaveDocument(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 10, res.Node.Version)

	fresh := SaveInput{Path: "w.md", Title: "W", IsPublic: boolPtr(false), Slug: "w", Version: 4}
	res, err = m.SaveDocument(ctx, fresh)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, 4, res.Node.Version)
}

func TestSaveDocumentIdempotentWithExplicitVersion(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	in := SaveInput{Path: "same.md", Content: "body", Title: "Same", IsPublic: boolPtr(true), Slug: "same", Version: 7}
	for i := 0; i < 3; i++ {
		_, err := m.SaveDocument(ctx, in)
		require.NoError(t, err)
	}
	tree := readMeta(t, store)
	require.Len(t, tree.Pages, 1)
	node := tree.Pages[0]
	require.Equal(t, "Same", node.Title)
	require.Equal(t, "same", node.Slug)
	require.True(t, node.IsPublic)
	require.Equal(t, 7, node.Version)
}

func TestSaveDocumentContentRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	content := "---\ntitle: x\n---\n# Héllo\n\n```go\nfmt.Println(\"\\t\")\n```\n\x00tail"
	_, err := m.SaveDocument(ctx, SaveInput{Path: "/round/trip.mdx", Content: content, Title: "RT", IsPublic: boolPtr(true), Slug: "rt"})
	require.NoError(t, err)

	got, err := m.ReadContent(ctx, "round/trip.mdx", false)
	require.NoError(t, err)
	require.Equal(t, []byte(content), got)
}

func TestSaveDocumentValidation(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	_, err := m.SaveDocument(ctx, SaveInput{Path: "keep.md", Title: "Keep", IsPublic: boolPtr(true), Slug: "keep"})
	require.NoError(t, err)
	before, err := os.ReadFile(store.MetaPath())
	require.NoError(t, err)

	cases := map[string]SaveInput{
		"path is required":     {Title: "T", IsPublic: boolPtr(true), Slug: "s"},
		"title is required":    {Path: "x.md", IsPublic: boolPtr(true), Slug: "s"},
		"isPublic is required": {Path: "x.md", Title: "T", Slug: "s"},
		"slug is required":     {Path: "x.md", Title: "T", IsPublic: boolPtr(true)},
		"outside":              {Path: "../etc/passwd", Title: "T", IsPublic: boolPtr(true), Slug: "s"},
	}
	for msg, in := range cases {
		t.Run(msg, func(t *testing.T) {
			_, err := m.SaveDocument(ctx, in)
			require.Error(t, err)
			require.True(t, appErr.IsInvalid(err))
			require.Contains(t, err.Error(), msg)

			after, err := os.ReadFile(store.MetaPath())
			require.NoError(t, err)
			require.Equal(t, before, after)
		})
	}
	require.NoFileExists(t, filepath.Join(store.Root(), "x.md"))
}

func TestSaveDocumentRejectsSlugOfOtherPage(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	_, err := m.SaveDocument(ctx, SaveInput{Path: "one.md", Content: "1", Title: "One", IsPublic: boolPtr(true), Slug: "dup"})
	require.NoError(t, err)
	before, err := os.ReadFile(store.MetaPath())
	require.NoError(t, err)

	_, err = m.SaveDocument(ctx, SaveInput{Path: "two.md", Content: "2", Title: "Two", IsPublic: boolPtr(true), Slug: "dup"})
	require.Error(t, err)
	require.True(t, appErr.IsConflict(err))

	after, err := os.ReadFile(store.MetaPath())
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.NoFileExists(t, filepath.Join(store.Root(), "two.md"))

	// the owner itself keeps its slug on update
	_, err = m.SaveDocument(ctx, SaveInput{Path: "one.md", Content: "1b", Title: "One", IsPublic: boolPtr(true), Slug: "dup"})
	require.NoError(t, err)
}

func failMetaWrites(store *Store) {
	store.writeFile = func(path string, r io.Reader) error {
		if path == store.MetaPath() {
			return errors.New("disk full")
		}
		return atomic.WriteFile(path, r)
	}
}

func TestSaveDocumentRollsBackContentWhenMetaWriteFails(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	_, err := m.SaveDocument(ctx, SaveInput{Path: "exists.md", Content: "v1", Title: "E", IsPublic: boolPtr(true), Slug: "e"})
	require.NoError(t, err)

	failMetaWrites(store)

	_, err = m.SaveDocument(ctx, SaveInput{Path: "exists.md", Content: "v2", Title: "E", IsPublic: boolPtr(true), Slug: "e"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	content, err := os.ReadFile(store.ContentPath("exists.md"))
	require.NoError(t, err)
	require.Equal(t, "v1", string(content))

	_, err = m.SaveDocument(ctx, SaveInput{Path: "new/page.md", Content: "n", Title: "N", IsPublic: boolPtr(true), Slug: "n"})
	require.Error(t, err)
	require.NoFileExists(t, store.ContentPath("new/page.md"))

	node, err := m.GetByPath("exists.md")
	require.NoError(t, err)
	require.Equal(t, 1, node.Version)
}

// Two read-modify-write cycles through the raw store, interleaved the way two
// concurrent requests would run them, lose the first writer's node.
func TestStoreInterleavedReadModifyWriteLosesUpdate(t *testing.T) {
	store := NewStore(t.TempDir(), "meta.json")
	writeMeta(t, store, &Tree{Pages: []*PageNode{}})

	first := readMeta(t, store)
	second := readMeta(t, store)

	first.Pages = append(first.Pages, &PageNode{Slug: "first", Path: "first.md", Children: []*PageNode{}})
	second.Pages = append(second.Pages, &PageNode{Slug: "second", Path: "second.md", Children: []*PageNode{}})
	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	final := readMeta(t, store)
	require.Len(t, final.Pages, 1)
	require.Equal(t, "second", final.Pages[0].Slug)
}

func TestManagerSerializesConcurrentSaves(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	const writers = 16

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.SaveDocument(ctx, SaveInput{
				Path:     fmt.Sprintf("p/%d.md", i),
				Content:  fmt.Sprintf("body %d", i),
				Title:    fmt.Sprintf("Page %d", i),
				IsPublic: boolPtr(true),
				Slug:     fmt.Sprintf("page-%d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, readMeta(t, store).Pages, writers)
	require.Len(t, m.Tree(true), writers)
}

func TestTreeHidesPrivateSubtrees(t *testing.T) {
	m, store := newTestManager(t)
	writeMeta(t, store, &Tree{Pages: []*PageNode{
		{Slug: "pub", Path: "pub.md", IsPublic: true, Children: []*PageNode{
			{Slug: "pub-private", Path: "pub/private.md", IsPublic: false, Children: []*PageNode{}},
			{Slug: "pub-public", Path: "pub/public.md", IsPublic: true, Children: []*PageNode{}},
		}},
		{Slug: "priv", Path: "priv.md", IsPublic: false, Children: []*PageNode{
			{Slug: "priv-public", Path: "priv/public.md", IsPublic: true, Children: []*PageNode{}},
		}},
	}})
	require.NoError(t, m.Reload(context.Background()))

	public := m.Tree(false)
	require.Len(t, public, 1)
	require.Equal(t, "pub", public[0].Slug)
	require.Len(t, public[0].Children, 1)
	require.Equal(t, "pub-public", public[0].Children[0].Slug)

	all := m.Tree(true)
	require.Len(t, all, 2)
	require.Len(t, m.Nodes(true), 5)
	require.Len(t, m.Nodes(false), 2)

	// copies handed out never alias the manager's tree
	all[0].Title = "changed"
	require.NotEqual(t, "changed", m.Tree(true)[0].Title)
}

func TestReadContentRespectsVisibility(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	_, err := m.SaveDocument(ctx, SaveInput{Path: "secret.md", Content: "s", Title: "S", IsPublic: boolPtr(false), Slug: "secret"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.ContentPath("loose.md"), []byte("loose"), 0o644))

	_, err = m.ReadContent(ctx, "secret.md", false)
	require.True(t, appErr.IsNotFound(err))
	data, err := m.ReadContent(ctx, "secret.md", true)
	require.NoError(t, err)
	require.Equal(t, "s", string(data))

	_, err = m.ReadContent(ctx, "loose.md", false)
	require.True(t, appErr.IsNotFound(err))
	data, err = m.ReadContent(ctx, "loose.md", true)
	require.NoError(t, err)
	require.Equal(t, "loose", string(data))

	_, err = m.ReadContent(ctx, "missing.md", true)
	require.True(t, appErr.IsNotFound(err))
}

func TestPublicPageUnderPrivateParentIsHidden(t *testing.T) {
	store := NewStore(t.TempDir(), "meta.json")
	writeMeta(t, store, &Tree{Pages: []*PageNode{{
		Slug: "priv", Title: "Private", Path: "priv.md", IsPublic: false, Version: 1,
		Children: []*PageNode{
			{Slug: "inner", Title: "Inner", Path: "priv/public.md", IsPublic: true, Version: 1, Children: []*PageNode{}},
		},
	}}})
	require.NoError(t, store.WriteContent("priv.md", []byte("parent body")))
	require.NoError(t, store.WriteContent("priv/public.md", []byte("secret body")))
	m, err := NewManager(context.Background(), store)
	require.NoError(t, err)
	ctx := context.Background()

	require.Empty(t, m.Tree(false))
	require.False(t, m.PubliclyVisible("priv/public.md"))
	require.False(t, m.PubliclyVisible("app/docs/priv/public.md"))

	_, err = m.ReadContent(ctx, "priv/public.md", false)
	require.True(t, appErr.IsNotFound(err))
	data, err := m.ReadContent(ctx, "priv/public.md", true)
	require.NoError(t, err)
	require.Equal(t, "secret body", string(data))

	res, err := m.SaveDocument(ctx, SaveInput{Path: "priv.md", Content: "parent body", Title: "Private", IsPublic: boolPtr(true), Slug: "priv"})
	require.NoError(t, err)
	require.True(t, res.VisibilityChanged)
	require.True(t, m.PubliclyVisible("priv/public.md"))
	data, err = m.ReadContent(ctx, "priv/public.md", false)
	require.NoError(t, err)
	require.Equal(t, "secret body", string(data))

	res, err = m.SaveDocument(ctx, SaveInput{Path: "priv.md", Content: "again", Title: "Private", IsPublic: boolPtr(true), Slug: "priv"})
	require.NoError(t, err)
	require.False(t, res.VisibilityChanged)

	sub, err := m.Subtree("priv.md")
	require.NoError(t, err)
	require.Len(t, sub, 2)
	require.Equal(t, "priv.md", sub[0].Path)
	require.Equal(t, "priv/public.md", sub[1].Path)
	require.Nil(t, sub[0].Children)
	_, err = m.Subtree("nope.md")
	require.True(t, appErr.IsNotFound(err))
}

func TestRenameDerivesSlug(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, err := m.SaveDocument(ctx, SaveInput{Path: "a.md", Title: "A", IsPublic: boolPtr(true), Slug: "a"})
	require.NoError(t, err)
	_, err = m.SaveDocument(ctx, SaveInput{Path: "b.md", Title: "B", IsPublic: boolPtr(true), Slug: "getting-started"})
	require.NoError(t, err)

	node, err := m.Rename(ctx, "a.md", "  Hello, World!  ")
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", node.Title)
	require.Equal(t, "hello-world", node.Slug)
	require.Equal(t, 1, node.Version)

	got, err := m.GetBySlug("hello-world")
	require.NoError(t, err)
	require.Equal(t, "a.md", got.Path)
	_, err = m.GetBySlug("a")
	require.True(t, appErr.IsNotFound(err))

	_, err = m.Rename(ctx, "a.md", "Getting Started")
	require.True(t, appErr.IsConflict(err))
	_, err = m.Rename(ctx, "nope.md", "X")
	require.True(t, appErr.IsNotFound(err))
	_, err = m.Rename(ctx, "a.md", "!!!")
	require.True(t, appErr.IsInvalid(err))
}

func TestUpdateSortOrderReordersSiblings(t *testing.T) {
	m, store := newTestManager(t)
	writeMeta(t, store, &Tree{Pages: []*PageNode{
		{Slug: "root", Path: "root.md", Children: []*PageNode{
			{Slug: "x", Path: "root/x.md", Children: []*PageNode{}},
			{Slug: "y", Path: "root/y.md", Children: []*PageNode{}},
			{Slug: "z", Path: "root/z.md", Children: []*PageNode{}},
		}},
	}})
	require.NoError(t, m.Reload(context.Background()))

	require.NoError(t, m.UpdateSortOrder(context.Background(), "root/x.md", 5))
	children := readMeta(t, store).Pages[0].Children
	slugs := []string{children[0].Slug, children[1].Slug, children[2].Slug}
	require.Equal(t, []string{"y", "z", "x"}, slugs)
	require.Equal(t, 5, children[2].SortOrder)

	require.True(t, appErr.IsNotFound(m.UpdateSortOrder(context.Background(), "missing.md", 1)))
}

func TestDeleteRemovesLeafOnly(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	writeMeta(t, store, &Tree{Pages: []*PageNode{
		{Slug: "parent", Path: "parent.md", Children: []*PageNode{
			{Slug: "leaf", Path: "parent/leaf.md", Children: []*PageNode{}},
		}},
	}})
	require.NoError(t, store.WriteContent("parent/leaf.md", []byte("leaf")))
	require.NoError(t, m.Reload(ctx))

	require.True(t, appErr.IsConflict(m.Delete(ctx, "parent.md")))
	require.NoError(t, m.Delete(ctx, "parent/leaf.md"))
	require.NoFileExists(t, store.ContentPath("parent/leaf.md"))
	require.Empty(t, readMeta(t, store).Pages[0].Children)
	require.True(t, appErr.IsNotFound(m.Delete(ctx, "parent/leaf.md")))
	require.NoError(t, m.Delete(ctx, "parent.md"))
	require.Empty(t, m.Tree(true))
}

func TestCheckReportsInconsistencies(t *testing.T) {
	m, store := newTestManager(t)
	writeMeta(t, store, &Tree{Pages: []*PageNode{
		{Slug: "a", Path: "a.md", Children: []*PageNode{}},
		{Slug: "a", Path: "app/docs/a.md", Children: []*PageNode{}},
		{Slug: "b", Path: "b.md", Children: []*PageNode{}},
	}})
	require.NoError(t, store.WriteContent("a.md", []byte("a")))

	report, err := m.Check(context.Background())
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Equal(t, []string{"b.md"}, report.MissingContent)
	require.Equal(t, []string{"a.md"}, report.DuplicatePaths)
	require.Equal(t, []string{"a"}, report.DuplicateSlugs)

	// first match in tree order is the one that gets updated
	require.NoError(t, m.Reload(context.Background()))
	_, err = m.SaveDocument(context.Background(), SaveInput{Path: "a.md", Content: "x", Title: "First", IsPublic: boolPtr(true), Slug: "a"})
	require.NoError(t, err)
	tree := readMeta(t, store)
	require.Equal(t, "First", tree.Pages[0].Title)
	require.Equal(t, "", tree.Pages[1].Title)
}
