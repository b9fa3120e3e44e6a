// Package search indexes committed documents and serves full-text queries,
// trying Meilisearch first and falling back to Postgres FTS.
package search

import (
	"log"
	"time"

	"archivio/bot/internal/store"
)

// Service is the facade the rest of the bot talks to. meili may be nil when
// Meilisearch is not configured.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to Postgres.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexCommitted pushes freshly committed documents into the index without
// blocking the commit path.
func (s *Service) IndexCommitted(docs []store.Document) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	records := toRecords(docs)
	go func() {
		if err := s.meili.IndexDocuments(records); err != nil {
			log.Printf("search: index %d committed documents: %v", len(records), err)
		}
	}()
}

// ReindexAll pushes every stored document into Meilisearch. Called at startup
// so the index catches up on anything committed while it was unreachable.
func (s *Service) ReindexAll(docs []store.Document) {
	if s.meili == nil || !s.meili.Healthy() || len(docs) == 0 {
		return
	}
	if err := s.meili.IndexDocuments(toRecords(docs)); err != nil {
		log.Printf("search: reindex documents: %v", err)
	}
}

// Close shuts down the Meilisearch monitor, if any.
func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func toRecords(docs []store.Document) []DocumentRecord {
	records := make([]DocumentRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, DocumentRecord{
			ID:         doc.ID,
			Activity:   doc.ActivityName,
			Context:    doc.Context,
			Content:    string(doc.Content),
			AuthorName: doc.AuthorName,
			CreatedAt:  doc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return records
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
