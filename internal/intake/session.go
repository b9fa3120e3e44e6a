package intake

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"archivio/bot/internal/staging"
	"archivio/bot/internal/validate"

	"github.com/google/uuid"
)

// State of a submission session.
type State int

const (
	// StateOpen accepts attaches and a commit.
	StateOpen State = iota
	// StateCommitting has a commit in flight; further commits are rejected
	// as busy instead of interleaved.
	StateCommitting
	// StateClosed is terminal, reached by a successful commit or a discard.
	StateClosed
)

// Session is one user's in-progress multi-document upload for one activity.
// The presentation layer reflects this state; it never owns it.
type Session struct {
	Activity  string
	UserID    string
	ChannelID string

	key   string
	store staging.Store
	coord *Coordinator
	ttl   time.Duration

	mu         sync.Mutex
	state      State
	count      int
	lastActive time.Time
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Count returns how many documents are currently attached.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Attach validates content and appends it to the staging area. On success it
// returns the new item count; on failure nothing is mutated.
func (s *Session) Attach(ctx context.Context, docType staging.DocumentType, content, docContext string) (int, error) {
	if !validate.Content(content) {
		return 0, errValidation("content rejected by validator")
	}
	if !staging.KnownType(docType) {
		return 0, errValidation("unknown document type " + string(docType))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return 0, errSessionNotFound()
	case StateCommitting:
		return 0, errBusy()
	}

	item := staging.Item{
		ID:         uuid.NewString(),
		Type:       docType,
		Content:    []byte(content),
		Context:    docContext,
		Seq:        s.count,
		AttachedAt: time.Now().UTC(),
	}
	if err := s.store.Append(ctx, s.key, item); err != nil {
		if errors.Is(err, staging.ErrSessionNotFound) {
			// The staging area expired or was destroyed underneath us.
			// The destroy wins; this session is over.
			s.state = StateClosed
			return 0, errSessionNotFound()
		}
		log.Printf("intake: append to %s: %v", s.key, err)
		return 0, errPersistenceFailed()
	}

	s.count++
	s.lastActive = time.Now()
	return s.count, nil
}

// Commit hands the full staged batch to the coordinator. While the commit is
// in flight the session rejects concurrent commits and attaches as busy. On
// failure the session returns to StateOpen with all items preserved; on
// success the staging area is destroyed and the session closes.
func (s *Session) Commit(ctx context.Context, author Author) (int, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return 0, errSessionNotFound()
	case StateCommitting:
		s.mu.Unlock()
		return 0, errBusy()
	}
	if s.count == 0 {
		s.mu.Unlock()
		return 0, errEmptyBatch()
	}
	s.state = StateCommitting
	s.lastActive = time.Now()
	s.mu.Unlock()

	items, err := s.store.List(ctx, s.key)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if errors.Is(err, staging.ErrSessionNotFound) {
			s.state = StateClosed
			return 0, errSessionNotFound()
		}
		log.Printf("intake: list staged items for %s: %v", s.key, err)
		s.state = StateOpen
		return 0, errPersistenceFailed()
	}
	if len(items) == 0 {
		// Staged items vanished between attach and commit (expired TTL on a
		// durable backend). Treat like a destroyed session.
		s.mu.Lock()
		defer s.mu.Unlock()
		s.state = StateClosed
		return 0, errSessionNotFound()
	}

	n, err := s.coord.Commit(ctx, Batch{
		ChannelID: s.ChannelID,
		Activity:  s.Activity,
		Author:    author,
		Items:     items,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateOpen
		s.lastActive = time.Now()
		return 0, err
	}

	if derr := s.store.Destroy(ctx, s.key); derr != nil {
		log.Printf("intake: destroy staging for %s after commit: %v", s.key, derr)
	}
	s.state = StateClosed
	return n, nil
}

// Discard closes the session and drops every staged item. Calling it twice
// is a no-op the second time. A discard during an in-flight commit does
// nothing; the commit outcome decides the session's fate.
func (s *Session) Discard(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()

	if err := s.store.Destroy(ctx, s.key); err != nil {
		log.Printf("intake: destroy staging for %s on discard: %v", s.key, err)
	}
}

// ExpireIfIdle discards the session if it has seen no activity for longer
// than its time-to-live. Returns true if the session was discarded.
func (s *Session) ExpireIfIdle(ctx context.Context, now time.Time) bool {
	s.mu.Lock()
	if s.state != StateOpen || now.Sub(s.lastActive) <= s.ttl {
		s.mu.Unlock()
		return false
	}
	s.state = StateClosed
	s.mu.Unlock()

	if err := s.store.Destroy(ctx, s.key); err != nil {
		log.Printf("intake: destroy staging for %s on expiry: %v", s.key, err)
	}
	return true
}
