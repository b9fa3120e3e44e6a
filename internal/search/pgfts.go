package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole bot is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// docVector is the searchable text of a document row. Content is stored as
// bytes, so it has to be decoded before Postgres can tokenize it.
const docVector = `to_tsvector('italian', d.activity_name || ' ' || d.context || ' ' || convert_from(d.content, 'UTF8'))`

// Search runs plainto_tsquery over the documents table with ts_rank ordering
// and ts_headline snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	where := docVector + ` @@ plainto_tsquery('italian', $1)`
	args := []any{q.Text}
	if q.Activity != "" {
		where += ` AND d.activity_name = $2`
		args = append(args, q.Activity)
	}

	query := fmt.Sprintf(`
		SELECT d.id, d.activity_name, d.author_name,
			ts_headline('italian', d.context || ' ' || convert_from(d.content, 'UTF8'),
				plainto_tsquery('italian', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			COUNT(*) OVER() AS total
		FROM documents d
		WHERE %s
		ORDER BY ts_rank(%s, plainto_tsquery('italian', $1)) DESC
		LIMIT %d
	`, where, docVector, limit)

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	total := 0
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Activity, &r.AuthorName, &r.Snippet, &total); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgfts rows: %w", err)
	}
	return results, total, nil
}
