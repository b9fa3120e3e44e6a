package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore wraps all SQL used by the bot.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying handle for collaborators that run their own SQL.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// SaveDocumentBatch inserts every document in one transaction. Either the
// whole batch is recorded or none of it is; a failure partway through a
// multi-item batch leaves no rows behind.
func (s *PostgresStore) SaveDocumentBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}

	const insert = `
		INSERT INTO documents (id, activity_name, content, context, author_id, author_name)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx, insert,
			doc.ID, doc.ActivityName, doc.Content, doc.Context, doc.AuthorID, doc.AuthorName,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// InsertInspection records a single-shot inspection upload.
func (s *PostgresStore) InsertInspection(ctx context.Context, insp Inspection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inspections (id, activity_name, content, author_id, author_name)
		VALUES ($1, $2, $3, $4, $5)
	`, insp.ID, insp.ActivityName, insp.Content, insp.AuthorID, insp.AuthorName)
	if err != nil {
		return fmt.Errorf("insert inspection: %w", err)
	}
	return nil
}

// InsertSanction records a sanction against an activity.
func (s *PostgresStore) InsertSanction(ctx context.Context, sanction Sanction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sanctions (id, activity_name, reason, sanction_text, author_id, author_name)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sanction.ID, sanction.ActivityName, sanction.Reason, sanction.SanctionText, sanction.AuthorID, sanction.AuthorName)
	if err != nil {
		return fmt.Errorf("insert sanction: %w", err)
	}
	return nil
}

// CountDocumentsByAuthor counts finalized documents created by authorID in
// the [from, to] window. Payroll runs off this figure.
func (s *PostgresStore) CountDocumentsByAuthor(ctx context.Context, authorID string, from, to time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents
		WHERE author_id = $1 AND created_at >= $2 AND created_at <= $3
	`, authorID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// CountInspectionsByAuthor counts inspections uploaded by authorID in the
// [from, to] window.
func (s *PostgresStore) CountInspectionsByAuthor(ctx context.Context, authorID string, from, to time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM inspections
		WHERE author_id = $1 AND created_at >= $2 AND created_at <= $3
	`, authorID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count inspections: %w", err)
	}
	return count, nil
}

// ListDocuments returns every finalized document, newest first. Used to
// rebuild the search index at startup.
func (s *PostgresStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, activity_name, content, context, author_id, author_name, created_at
		FROM documents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.ActivityName, &doc.Content, &doc.Context, &doc.AuthorID, &doc.AuthorName, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}
