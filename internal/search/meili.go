package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxDocuments = "archivio_documents"

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the document index.
// An unreachable server is tolerated: the client reports unhealthy and the
// background monitor reconfigures the index once it recovers.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxDocuments,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxDocuments, err)
	}

	index := m.client.Index(idxDocuments)
	filterable := []interface{}{"activity"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxDocuments, err)
	}
	searchable := []string{"activity", "context", "content"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxDocuments, err)
	}
}

func (m *Meili) healthLoop() {
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
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the document index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 10
	}

	sr := &meili.SearchRequest{
		IndexUID:              idxDocuments,
		Query:                 q.Text,
		Limit:                 limit,
		AttributesToHighlight: []string{"*"},
		HighlightPreTag:       "**",
		HighlightPostTag:      "**",
	}
	if q.Activity != "" {
		sr.Filter = []string{fmt.Sprintf("activity = %q", q.Activity)}
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{sr},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	var results []Result
	total := 0
	for _, r := range resp.Results {
		total += int(r.EstimatedTotalHits)
		for _, hit := range r.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		ID:         decodeString(hit, "id"),
		Activity:   decodeString(hit, "activity"),
		AuthorName: decodeString(hit, "authorName"),
		Snippet: firstNonBlank(
			decodeFormattedString(hit, "context"),
			decodeString(hit, "context"),
			decodeFormattedString(hit, "content"),
			decodeString(hit, "content"),
		),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexDocuments bulk-indexes committed documents.
func (m *Meili) IndexDocuments(records []DocumentRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxDocuments).AddDocuments(records, nil)
	return err
}
