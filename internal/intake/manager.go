// Package intake implements the staged document-intake workflow: sessions
// that collect documents across multiple interaction steps, the staging area
// behind them, and the all-or-nothing commit that finalizes a batch.
package intake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"archivio/bot/internal/staging"
)

// DefaultTTL matches the visibility window of the interactive controls: a
// session nobody touches for this long is discarded.
const DefaultTTL = 180 * time.Second

const reapInterval = 30 * time.Second

// Manager hands out at most one open session per (activity, user) pair and
// reaps idle ones in the background.
type Manager struct {
	store staging.Store
	coord *Coordinator
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a manager over the given staging store and starts the
// idle-session reaper. ttl <= 0 selects DefaultTTL.
func NewManager(store staging.Store, coord *Coordinator, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		store:    store,
		coord:    coord,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
		done:     make(chan struct{}),
	}
	go m.reapLoop()
	return m
}

// Open returns the session for (activity, user), creating one if none is
// open. A second open for the same pair reuses the existing session and its
// staged items; it never creates a shadow session.
func (m *Manager) Open(ctx context.Context, activity, userID, channelID string) (*Session, error) {
	activity = strings.TrimSpace(activity)
	if activity == "" {
		return nil, intakeError(CodeValidation, "empty activity name",
			"Indica il nome dell'attività.")
	}

	key := staging.Key(activity, userID)

	// Opens for one key serialize on a keyed mutex so the staging I/O below
	// never runs under the global session-table lock: a slow backend call
	// for one user must not stall opens for everyone else.
	lock := m.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	existing, ok := m.sessions[key]
	m.mu.Unlock()
	if ok && existing.State() != StateClosed {
		return existing, nil
	}

	if err := m.store.Open(ctx, key); err != nil {
		return nil, intakeError(CodePersistenceFailed, fmt.Sprintf("open staging session: %v", err),
			"Impossibile aprire la sessione di caricamento. Riprova.")
	}

	// A durable backend may already hold items from before a restart; seed
	// the count from what is actually staged.
	items, err := m.store.List(ctx, key)
	if err != nil {
		return nil, intakeError(CodePersistenceFailed, fmt.Sprintf("list staging session: %v", err),
			"Impossibile aprire la sessione di caricamento. Riprova.")
	}

	session := &Session{
		Activity:   activity,
		UserID:     userID,
		ChannelID:  channelID,
		key:        key,
		store:      m.store,
		coord:      m.coord,
		ttl:        m.ttl,
		state:      StateOpen,
		count:      len(items),
		lastActive: time.Now(),
	}
	m.mu.Lock()
	m.sessions[key] = session
	m.mu.Unlock()
	return session, nil
}

// keyLock returns the open-serialization mutex for key. Entries live for the
// manager's lifetime so concurrent opens for the same key always contend on
// the same mutex; the table is bounded by distinct (activity, user) pairs.
func (m *Manager) keyLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// Lookup returns the open session for (activity, user), if any.
func (m *Manager) Lookup(activity, userID string) (*Session, bool) {
	key := staging.Key(strings.TrimSpace(activity), userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[key]
	if !ok || session.State() == StateClosed {
		return nil, false
	}
	return session, true
}

// Close stops the reaper. Open sessions are left for their TTL to handle.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Manager) reapLoop() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// sweep expires idle sessions and drops closed ones from the table.
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	snapshot := make(map[string]*Session, len(m.sessions))
	for key, session := range m.sessions {
		snapshot[key] = session
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, session := range snapshot {
		session.ExpireIfIdle(ctx, now)
	}

	m.mu.Lock()
	for key, session := range m.sessions {
		if session.State() == StateClosed {
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()
}
