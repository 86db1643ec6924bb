// Package render turns stored page sources into sanitized HTML.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/microcosm-cc/bluemonday"
	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	rendererhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

type Page struct {
	HTML string                 `json:"html"`
	Meta map[string]interface{} `json:"meta"`
	TOC  []Heading              `json:"toc"`
}

type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	html   *converter.Converter
	cache  *expirable.LRU[string, *Page]
}

// New builds a renderer. Raw HTML in sources is passed through goldmark and
// left to the sanitizer. A cacheSize or ttl of zero disables caching.
func New(cacheSize int, ttl time.Duration) *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")

	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererhtml.WithUnsafe()),
		),
		policy: policy,
		html: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
	if cacheSize > 0 && ttl > 0 {
		r.cache = expirable.NewLRU[string, *Page](cacheSize, nil, ttl)
	}
	return r
}

func CacheKey(path string, version int) string {
	return fmt.Sprintf("%s@%d", path, version)
}

// Render converts source to a Page. Results are cached under key when key is
// not empty; cached pages are shared and must not be modified.
func (r *Renderer) Render(ctx context.Context, key string, source []byte) (*Page, error) {
	if r.cache != nil && key != "" {
		if page, ok := r.cache.Get(key); ok {
			logutil.GetLogger(ctx).Debug("render cache hit", zap.String("key", key))
			return page, nil
		}
	}
	meta, body, err := SplitFrontMatter(source)
	if err != nil {
		return nil, err
	}
	reader := text.NewReader(body)
	doc := r.md.Parser().Parse(reader)

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	page := &Page{
		HTML: r.policy.Sanitize(buf.String()),
		Meta: meta,
		TOC:  collectHeadings(doc, body),
	}
	if r.cache != nil && key != "" {
		r.cache.Add(key, page)
	}
	return page, nil
}

// Invalidate drops every cached version of path.
func (r *Renderer) Invalidate(path string) {
	if r.cache == nil {
		return
	}
	prefix := path + "@"
	for _, key := range r.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			r.cache.Remove(key)
		}
	}
}

// HTMLToMarkdown converts rich text editor output into markdown.
func (r *Renderer) HTMLToMarkdown(html string) (string, error) {
	md, err := r.html.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return md, nil
}

func collectHeadings(doc ast.Node, source []byte) []Heading {
	toc := []Heading{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		item := Heading{Level: h.Level, Text: string(h.Text(source))}
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				item.ID = string(b)
			}
		}
		toc = append(toc, item)
		return ast.WalkSkipChildren, nil
	})
	return toc
}

const frontMatterFence = "---"

// SplitFrontMatter separates a leading YAML block fenced by "---" lines from
// the markdown body. Sources without one come back unchanged with empty meta.
func SplitFrontMatter(source []byte) (map[string]interface{}, []byte, error) {
	meta := map[string]interface{}{}
	normalized := bytes.ReplaceAll(source, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte(frontMatterFence+"\n")) {
		return meta, source, nil
	}
	rest := normalized[len(frontMatterFence)+1:]
	var block []byte
	var body []byte
	found := false
	for offset := 0; offset <= len(rest); {
		end := bytes.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		next := len(rest)
		if end >= 0 {
			line = rest[offset : offset+end]
			next = offset + end + 1
		}
		if strings.TrimRight(string(line), " \t") == frontMatterFence {
			block = rest[:offset]
			body = rest[next:]
			found = true
			break
		}
		if end < 0 {
			break
		}
		offset = next
	}
	if !found {
		return meta, source, nil
	}
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return nil, nil, fmt.Errorf("parse front matter: %w", err)
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return meta, body, nil
}
