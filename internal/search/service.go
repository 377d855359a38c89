package search

import (
	"context"
	"sync"

	"knowledgebase/internal/logging"
)

// Backend is a search engine that can also be written to.
type Backend interface {
	Searcher
	Indexer
}

// RecordLoader reads every searchable document from the primary store.
type RecordLoader interface {
	LoadAllRecords(ctx context.Context) ([]DocumentRecord, error)
}

// Service is the facade that tries the primary backend first and falls back
// to PostgreSQL full-text search.
type Service struct {
	primary  Backend
	fallback Searcher
	loader   RecordLoader
	log      *logging.Logger
	pending  sync.WaitGroup
}

// NewService creates a search service. primary may be nil when Meilisearch is
// not configured.
func NewService(primary Backend, fallback Searcher, loader RecordLoader, log *logging.Logger) *Service {
	return &Service{primary: primary, fallback: fallback, loader: loader, log: log.With("component", "search")}
}

// Search tries the primary backend if healthy, otherwise the fallback.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.primary != nil && s.primary.Healthy() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "meilisearch"}
		}
		s.log.Warn("primary search failed, falling back to postgres", "error", err)
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text, Backend: "none"}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.log.Error("postgres search failed", "error", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text, Backend: "postgres"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "postgres"}
}

// IndexDocument indexes a document in the background.
func (s *Service) IndexDocument(doc DocumentRecord) {
	s.background(func() error { return s.primary.IndexDocument(doc) }, "index document", doc.ID)
}

// DeleteDocument removes a document from the index in the background.
func (s *Service) DeleteDocument(id string) {
	s.background(func() error { return s.primary.DeleteDocument(id) }, "delete document", id)
}

// ReindexAll pushes every stored document to the primary backend.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.primary == nil || !s.primary.Healthy() || s.loader == nil {
		return
	}
	documents, err := s.loader.LoadAllRecords(ctx)
	if err != nil {
		s.log.Warn("reindex load failed", "error", err)
		return
	}
	if err := s.primary.IndexDocuments(documents); err != nil {
		s.log.Warn("reindex documents", "error", err, "count", len(documents))
		return
	}
	s.log.Info("reindexed documents", "count", len(documents))
}

// Wait blocks until background index writes have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) background(fn func() error, action, id string) {
	if s.primary == nil || !s.primary.Healthy() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := fn(); err != nil {
			s.log.Warn(action+" failed", "documentId", id, "error", err)
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
