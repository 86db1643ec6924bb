package search

import (
	"context"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/doctree"
)

// Local scans the page tree held in memory. It only matches titles and slugs.
type Local struct {
	nodes func(includePrivate bool) []*doctree.PageNode
}

func NewLocal(m *doctree.Manager) *Local {
	return &Local{nodes: m.Nodes}
}

func (l *Local) Search(ctx context.Context, q Query) ([]Result, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	results := []Result{}
	if needle == "" {
		return results, nil
	}
	for _, n := range l.nodes(q.IncludePrivate) {
		if !strings.Contains(strings.ToLower(n.Title), needle) && !strings.Contains(strings.ToLower(n.Slug), needle) {
			continue
		}
		results = append(results, Result{Path: n.Path, Slug: n.Slug, Title: n.Title, IsPublic: n.IsPublic})
		if len(results) >= q.limit() {
			break
		}
	}
	return results, nil
}

// remote is the part of Meili that Service relies on.
type remote interface {
	Searcher
	Indexer
	Healthy() bool
	Close()
}

type indexOp struct {
	logger *zap.Logger
	rec    *Record
	path   string
}

const indexQueueSize = 256

// Service sends queries to Meilisearch while it is healthy and to the local
// scan otherwise. Index updates are applied by one worker in submission
// order, so a later save of a page always wins.
type Service struct {
	remote remote
	local  Searcher

	ops       chan indexOp
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewService builds the search service; meili may be nil.
func NewService(meili *Meili, local Searcher) *Service {
	if meili == nil {
		return newService(nil, local)
	}
	return newService(meili, local)
}

func newService(r remote, local Searcher) *Service {
	s := &Service{
		remote:  r,
		local:   local,
		ops:     make(chan indexOp, indexQueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if r == nil {
		close(s.stopped)
		return s
	}
	go s.run()
	return s
}

func (s *Service) Search(ctx context.Context, q Query) ([]Result, error) {
	if s.remote != nil && s.remote.Healthy() {
		results, err := s.remote.Search(ctx, q)
		if err == nil {
			return results, nil
		}
		logutil.GetLogger(ctx).Warn("meilisearch query failed, falling back to local scan", zap.Error(err))
	}
	return s.local.Search(ctx, q)
}

// Index queues rec for Meilisearch. It is a no-op while Meilisearch is
// unavailable.
func (s *Service) Index(ctx context.Context, rec Record) error {
	return s.enqueue(ctx, indexOp{rec: &rec, path: rec.Path})
}

func (s *Service) Delete(ctx context.Context, path string) error {
	return s.enqueue(ctx, indexOp{path: path})
}

func (s *Service) enqueue(ctx context.Context, op indexOp) error {
	if s.remote == nil || !s.remote.Healthy() {
		return nil
	}
	select {
	case <-s.done:
		return nil
	default:
	}
	op.logger = logutil.GetLogger(ctx)
	select {
	case s.ops <- op:
	case <-s.done:
	}
	return nil
}

func (s *Service) run() {
	defer close(s.stopped)
	for {
		select {
		case op := <-s.ops:
			s.apply(op)
		case <-s.done:
			for {
				select {
				case op := <-s.ops:
					s.apply(op)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) apply(op indexOp) {
	ctx := context.Background()
	if op.rec != nil {
		if err := s.remote.Index(ctx, *op.rec); err != nil {
			op.logger.Warn("index page failed", zap.String("path", op.path), zap.Error(err))
		}
		return
	}
	if err := s.remote.Delete(ctx, op.path); err != nil {
		op.logger.Warn("remove page from index failed", zap.String("path", op.path), zap.Error(err))
	}
}

// Close applies the queued updates and stops the worker.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
		if s.remote != nil {
			s.remote.Close()
		}
	})
}
