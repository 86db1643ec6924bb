package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHeadingsAndTOC(t *testing.T) {
	r := New(0, 0)
	page, err := r.Render(context.Background(), "", []byte("# Getting Started\n\nIntro.\n\n## Install It\n\ntext\n"))
	require.NoError(t, err)

	assert.Contains(t, page.HTML, `<h1 id="getting-started">Getting Started</h1>`)
	assert.Contains(t, page.HTML, `<h2 id="install-it">Install It</h2>`)
	assert.Equal(t, []Heading{
		{Level: 1, Text: "Getting Started", ID: "getting-started"},
		{Level: 2, Text: "Install It", ID: "install-it"},
	}, page.TOC)
	assert.Empty(t, page.Meta)
}

func TestRenderSanitizesScripts(t *testing.T) {
	r := New(0, 0)
	page, err := r.Render(context.Background(), "", []byte("hello <script>alert(1)</script>\n\n<a href=\"javascript:alert(1)\">x</a>"))
	require.NoError(t, err)
	assert.NotContains(t, page.HTML, "<script")
	assert.NotContains(t, page.HTML, "javascript:")
	assert.Contains(t, page.HTML, "hello")
}

func TestRenderGFMTable(t *testing.T) {
	r := New(0, 0)
	page, err := r.Render(context.Background(), "", []byte("| a | b |\n|---|---|\n| 1 | 2 |\n"))
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "<table>")
	assert.Contains(t, page.HTML, "<td>1</td>")
}

func TestRenderFrontMatter(t *testing.T) {
	r := New(0, 0)
	src := "---\ntitle: Intro\ntags:\n  - a\n  - b\n---\n# Body\n"
	page, err := r.Render(context.Background(), "", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "Intro", page.Meta["title"])
	assert.Equal(t, []interface{}{"a", "b"}, page.Meta["tags"])
	assert.NotContains(t, page.HTML, "title: Intro")
	require.Len(t, page.TOC, 1)
}

func TestSplitFrontMatter(t *testing.T) {
	meta, body, err := SplitFrontMatter([]byte("no front matter\n---\n"))
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, "no front matter\n---\n", string(body))

	meta, body, err = SplitFrontMatter([]byte("---\nunterminated: true\n"))
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, "---\nunterminated: true\n", string(body))

	meta, body, err = SplitFrontMatter([]byte("---\r\nkey: v\r\n---\r\nrest"))
	require.NoError(t, err)
	assert.Equal(t, "v", meta["key"])
	assert.Equal(t, "rest", string(body))

	meta, body, err = SplitFrontMatter([]byte("---\n---\nbody"))
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, "body", string(body))

	_, _, err = SplitFrontMatter([]byte("---\nkey: [unclosed\n---\n"))
	require.Error(t, err)
}

func TestRenderCache(t *testing.T) {
	r := New(8, time.Minute)
	ctx := context.Background()
	key := CacheKey("guide/intro.md", 2)
	assert.Equal(t, "guide/intro.md@2", key)

	first, err := r.Render(ctx, key, []byte("# One"))
	require.NoError(t, err)
	cached, err := r.Render(ctx, key, []byte("# Two"))
	require.NoError(t, err)
	assert.Same(t, first, cached)

	other, err := r.Render(ctx, CacheKey("guide/intro.md", 3), []byte("# Two"))
	require.NoError(t, err)
	assert.Contains(t, other.HTML, "Two")

	r.Invalidate("guide/intro.md")
	fresh, err := r.Render(ctx, key, []byte("# Three"))
	require.NoError(t, err)
	assert.Contains(t, fresh.HTML, "Three")
}

func TestHTMLToMarkdown(t *testing.T) {
	r := New(0, 0)
	md, err := r.HTMLToMarkdown("<h2>Title</h2><p>Some <strong>bold</strong> text</p><ul><li>one</li></ul>")
	require.NoError(t, err)
	assert.Contains(t, md, "## Title")
	assert.Contains(t, md, "**bold**")
	assert.True(t, strings.Contains(md, "- one") || strings.Contains(md, "* one"), md)
}
