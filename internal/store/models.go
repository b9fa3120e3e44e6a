package store

import "time"

// Document is a finalized document row. Rows are only ever created by a
// successful batch commit; created_at is assigned by the database.
type Document struct {
	ID           string
	ActivityName string
	Content      []byte
	Context      string
	AuthorID     string
	AuthorName   string
	CreatedAt    time.Time
}

// Inspection is a single-shot inspection upload for an activity.
type Inspection struct {
	ID           string
	ActivityName string
	Content      []byte
	AuthorID     string
	AuthorName   string
	CreatedAt    time.Time
}

// Sanction is a sanction record applied to an activity.
type Sanction struct {
	ID           string
	ActivityName string
	Reason       string
	SanctionText string
	AuthorID     string
	AuthorName   string
	CreatedAt    time.Time
}
