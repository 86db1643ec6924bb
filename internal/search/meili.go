package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const pageIndex = "yawiki_pages"

// Meili implements Searcher and Indexer on a Meilisearch index.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili connects to url and configures the page index. An unreachable
// server is not an error; the client keeps probing and reports Healthy false
// until it answers.
func NewMeili(ctx context.Context, url, apiKey string) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
	}
	if _, err := m.client.Health(); err != nil {
		logutil.GetLogger(ctx).Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
	} else {
		m.healthy.Store(true)
		m.configureIndex(ctx)
	}
	go m.healthLoop(ctx)
	return m
}

func (m *Meili) configureIndex(ctx context.Context) {
	logger := logutil.GetLogger(ctx)
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: pageIndex, PrimaryKey: "id"}); err != nil {
		logger.Debug("create page index", zap.Error(err))
	}
	index := m.client.Index(pageIndex)
	filterable := []interface{}{"isPublic"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		logger.Warn("update filterable attributes failed", zap.Error(err))
	}
	searchable := []string{"title", "slug", "body"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		logger.Warn("update searchable attributes failed", zap.Error(err))
	}
}

func (m *Meili) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				logutil.GetLogger(ctx).Info("meilisearch recovered, reconfiguring page index")
				m.configureIndex(ctx)
			}
		}
	}
}

func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(ctx context.Context, q Query) ([]Result, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}
	req := &meili.SearchRequest{
		Limit:            int64(q.limit()),
		AttributesToCrop: []string{"body"},
		CropLength:       24,
	}
	if !q.IncludePrivate {
		req.Filter = "isPublic = true"
	}
	resp, err := m.client.Index(pageIndex).Search(q.Text, req)
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}
	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, nil
}

func (m *Meili) Index(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = RecordID(rec.Path)
	}
	_, err := m.client.Index(pageIndex).AddDocuments([]Record{rec}, nil)
	return err
}

func (m *Meili) Delete(ctx context.Context, path string) error {
	_, err := m.client.Index(pageIndex).DeleteDocument(RecordID(path), nil)
	return err
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		Path:     decodeString(hit, "path"),
		Slug:     decodeString(hit, "slug"),
		Title:    decodeString(hit, "title"),
		Snippet:  decodeFormattedString(hit, "body"),
		IsPublic: decodeBool(hit, "isPublic"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeBool(hit meili.Hit, key string) bool {
	raw, ok := hit[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]interface{}
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	s, _ := formatted[key].(string)
	return strings.TrimSpace(s)
}
