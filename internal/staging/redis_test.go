package staging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), 3*time.Minute)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestRedisOpenAppendList(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	key := Key("Bar Roma", "user-1")

	if err := store.Open(ctx, key); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	items, err := store.List(ctx, key)
	if err != nil {
		t.Fatalf("List on empty session failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty session, got %d items", len(items))
	}

	for i, id := range []string{"doc-1", "doc-2", "doc-3"} {
		item := Item{ID: id, Type: TypeHACCP, Content: []byte(id), Seq: i}
		if err := store.Append(ctx, key, item); err != nil {
			t.Fatalf("Append %s failed: %v", id, err)
		}
	}

	items, err = store.List(ctx, key)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, id := range []string{"doc-1", "doc-2", "doc-3"} {
		if items[i].ID != id {
			t.Errorf("item %d: expected %s, got %s", i, id, items[i].ID)
		}
		if string(items[i].Content) != id {
			t.Errorf("item %d: content mismatch: %q", i, items[i].Content)
		}
	}
}

func TestRedisAppendToMissingSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	err := store.Append(ctx, Key("Bar Roma", "ghost"), Item{ID: "i1"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisSessionExpires(t *testing.T) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	key := Key("Bar Roma", "user-1")

	if err := store.Open(ctx, key); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Append(ctx, key, Item{ID: "doc-1"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	s.FastForward(200 * time.Millisecond)

	if _, err := store.List(ctx, key); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after TTL, got %v", err)
	}
	if err := store.Append(ctx, key, Item{ID: "late"}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("append after expiry must fail with ErrSessionNotFound, got %v", err)
	}
}

func TestRedisDestroyIsIdempotent(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	key := Key("Bar Roma", "user-1")

	if err := store.Open(ctx, key); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Append(ctx, key, Item{ID: "doc-1"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := store.Destroy(ctx, key); err != nil {
		t.Fatalf("first Destroy failed: %v", err)
	}
	if err := store.Destroy(ctx, key); err != nil {
		t.Fatalf("second Destroy failed: %v", err)
	}
	if _, err := store.List(ctx, key); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after destroy, got %v", err)
	}
}

func TestRedisIsolationBetweenUsers(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	keyA := Key("Bar Roma", "user-a")
	keyB := Key("Bar Roma", "user-b")

	if err := store.Open(ctx, keyA); err != nil {
		t.Fatalf("Open A failed: %v", err)
	}
	if err := store.Open(ctx, keyB); err != nil {
		t.Fatalf("Open B failed: %v", err)
	}
	if err := store.Append(ctx, keyA, Item{ID: "a-doc"}); err != nil {
		t.Fatalf("Append A failed: %v", err)
	}

	itemsB, err := store.List(ctx, keyB)
	if err != nil {
		t.Fatalf("List B failed: %v", err)
	}
	if len(itemsB) != 0 {
		t.Errorf("user B must not see user A's staged items: %+v", itemsB)
	}

	if err := store.Destroy(ctx, keyA); err != nil {
		t.Fatalf("Destroy A failed: %v", err)
	}
	if _, err := store.List(ctx, keyB); err != nil {
		t.Errorf("destroying A must not touch B: %v", err)
	}
}
