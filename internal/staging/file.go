package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore keeps each session in its own directory under root. Every item is
// stored as a content file plus a JSON sidecar with its metadata, and the
// whole directory is removed on Destroy. Sessions survive a process restart.
type FileStore struct {
	root string

	// mu guards the per-key lock table; the keyed locks serialize filesystem
	// work for one session without blocking other sessions.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type fileMeta struct {
	ID          string       `json:"id"`
	Type        DocumentType `json:"type"`
	Context     string       `json:"context"`
	Seq         int          `json:"seq"`
	AttachedAt  time.Time    `json:"attached_at"`
	ContentFile string       `json:"content_file"`
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	return &FileStore{root: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (f *FileStore) lock(key string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[key]
	if !ok {
		l = &sync.Mutex{}
		f.locks[key] = l
	}
	return l
}

func (f *FileStore) dir(key string) string {
	return filepath.Join(f.root, key)
}

// Open creates the session directory if it does not exist yet.
func (f *FileStore) Open(_ context.Context, key string) error {
	l := f.lock(key)
	l.Lock()
	defer l.Unlock()
	if err := os.MkdirAll(f.dir(key), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return nil
}

// Append writes the item content and its sidecar into the session directory.
func (f *FileStore) Append(_ context.Context, key string, item Item) error {
	l := f.lock(key)
	l.Lock()
	defer l.Unlock()

	dir := f.dir(key)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("stat session dir: %w", err)
	}

	base := fmt.Sprintf("%04d_%s", item.Seq, item.ID)
	contentFile := base + ".txt"
	if err := os.WriteFile(filepath.Join(dir, contentFile), item.Content, 0o644); err != nil {
		return fmt.Errorf("write content: %w", err)
	}

	meta := fileMeta{
		ID:          item.ID,
		Type:        item.Type,
		Context:     item.Context,
		Seq:         item.Seq,
		AttachedAt:  item.AttachedAt,
		ContentFile: contentFile,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, base+".json"), raw, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// List reads every sidecar in the session directory and returns the items
// sorted by attach sequence.
func (f *FileStore) List(_ context.Context, key string) ([]Item, error) {
	l := f.lock(key)
	l.Lock()
	defer l.Unlock()

	dir := f.dir(key)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	items := []Item{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read sidecar %s: %w", entry.Name(), err)
		}
		var meta fileMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("decode sidecar %s: %w", entry.Name(), err)
		}
		content, err := os.ReadFile(filepath.Join(dir, meta.ContentFile))
		if err != nil {
			return nil, fmt.Errorf("read content %s: %w", meta.ContentFile, err)
		}
		items = append(items, Item{
			ID:         meta.ID,
			Type:       meta.Type,
			Content:    content,
			Context:    meta.Context,
			Seq:        meta.Seq,
			AttachedAt: meta.AttachedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })
	return items, nil
}

// Destroy removes the session directory wholesale. RemoveAll on a missing
// directory returns nil, which gives the required idempotence for free.
// The lock table entry stays: removing it would let a goroutine still
// holding the old mutex overlap with one that fetched a fresh mutex for the
// same key. Keys repeat across sessions, so the table stays bounded by the
// number of distinct (user, activity) pairs.
func (f *FileStore) Destroy(_ context.Context, key string) error {
	l := f.lock(key)
	l.Lock()
	defer l.Unlock()
	if err := os.RemoveAll(f.dir(key)); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	return nil
}
