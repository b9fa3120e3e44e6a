package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return store
}

func TestFileAppendAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)
	key := Key("Bar Roma", "user-1")

	if err := store.Open(ctx, key); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	attached := time.Now().UTC().Truncate(time.Second)
	items := []Item{
		{ID: "doc-1", Type: TypeCPI, Content: []byte("ok1"), Context: "prima ispezione", Seq: 0, AttachedAt: attached},
		{ID: "doc-2", Type: TypeOther, Content: []byte("ok2"), Context: "allegato", Seq: 1, AttachedAt: attached},
	}
	for _, item := range items {
		if err := store.Append(ctx, key, item); err != nil {
			t.Fatalf("Append %s failed: %v", item.ID, err)
		}
	}

	got, err := store.List(ctx, key)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	for i, item := range items {
		if got[i].ID != item.ID {
			t.Errorf("item %d: expected %s, got %s", i, item.ID, got[i].ID)
		}
		if string(got[i].Content) != string(item.Content) {
			t.Errorf("item %d: content round-trip mismatch: %q", i, got[i].Content)
		}
		if got[i].Type != item.Type || got[i].Context != item.Context {
			t.Errorf("item %d: metadata round-trip mismatch: %+v", i, got[i])
		}
	}
}

func TestFileSidecarLayout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	key := Key("Bar Roma", "user-1")

	if err := store.Open(ctx, key); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Append(ctx, key, Item{ID: "doc-1", Seq: 0, Content: []byte("x")}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, key))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	// One content file and one sidecar per item.
	if len(entries) != 2 {
		t.Errorf("expected 2 files per item, got %d", len(entries))
	}
}

func TestFileAppendToMissingSession(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	err := store.Append(ctx, Key("Bar Roma", "ghost"), Item{ID: "i1"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestFileDestroyRemovesDirectory(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	key := Key("Bar Roma", "user-1")

	if err := store.Open(ctx, key); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Append(ctx, key, Item{ID: "doc-1", Content: []byte("x")}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := store.Destroy(ctx, key); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, key)); !os.IsNotExist(err) {
		t.Error("session directory must be removed wholesale on destroy")
	}

	// Second destroy is a no-op.
	if err := store.Destroy(ctx, key); err != nil {
		t.Fatalf("second Destroy failed: %v", err)
	}
	if _, err := store.List(ctx, key); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after destroy, got %v", err)
	}
}

func TestFileLockStableAcrossDestroy(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)
	key := Key("Bar Roma", "user-1")

	if err := store.Open(ctx, key); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	before := store.lock(key)
	if err := store.Destroy(ctx, key); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	// A goroutine still holding the old mutex and one locking after the
	// destroy must contend on the same instance.
	if store.lock(key) != before {
		t.Error("destroy must not replace the key's mutex")
	}
}

func TestFileSessionSurvivesStoreRestart(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	key := Key("Bar Roma", "user-1")

	if err := store.Open(ctx, key); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Append(ctx, key, Item{ID: "doc-1", Seq: 0, Content: []byte("x")}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// A new store over the same root sees the staged items.
	reopened, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore (reopen) failed: %v", err)
	}
	items, err := reopened.List(ctx, key)
	if err != nil {
		t.Fatalf("List after reopen failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "doc-1" {
		t.Errorf("staged items lost across restart: %+v", items)
	}
}
