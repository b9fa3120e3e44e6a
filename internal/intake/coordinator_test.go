package intake

import (
	"context"
	"errors"
	"testing"

	"archivio/bot/internal/staging"
	"archivio/bot/internal/store"
)

type fakeHandle struct {
	retractFn func(context.Context) error
	retracts  int
}

func (f *fakeHandle) Retract(ctx context.Context) error {
	f.retracts++
	if f.retractFn != nil {
		return f.retractFn(ctx)
	}
	return nil
}

type fakePublisher struct {
	publishFn func(context.Context, Batch) (Handle, error)
	calls     int
	batches   []Batch
}

func (f *fakePublisher) Publish(ctx context.Context, batch Batch) (Handle, error) {
	f.calls++
	f.batches = append(f.batches, batch)
	if f.publishFn != nil {
		return f.publishFn(ctx, batch)
	}
	return &fakeHandle{}, nil
}

type fakeRepo struct {
	saveFn  func(context.Context, []store.Document) error
	calls   int
	batches [][]store.Document
}

func (f *fakeRepo) SaveDocumentBatch(ctx context.Context, docs []store.Document) error {
	f.calls++
	f.batches = append(f.batches, docs)
	if f.saveFn != nil {
		return f.saveFn(ctx, docs)
	}
	return nil
}

type fakeIndexer struct {
	indexed [][]store.Document
}

func (f *fakeIndexer) IndexCommitted(docs []store.Document) {
	f.indexed = append(f.indexed, docs)
}

type fakeArchiver struct {
	archived [][]store.Document
}

func (f *fakeArchiver) ArchiveCommitted(docs []store.Document) {
	f.archived = append(f.archived, docs)
}

func testBatch(n int) Batch {
	items := make([]staging.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, staging.Item{
			ID:      string(rune('a' + i)),
			Type:    staging.TypeCPI,
			Content: []byte("content"),
			Context: "ctx",
			Seq:     i,
		})
	}
	return Batch{
		ChannelID: "chan-1",
		Activity:  "Bar Roma",
		Author:    Author{ID: "u1", DisplayName: "Mario"},
		Items:     items,
	}
}

func TestCoordinatorRejectsEmptyBatch(t *testing.T) {
	coord := NewCoordinator(&fakePublisher{}, &fakeRepo{}, nil, nil)

	_, err := coord.Commit(context.Background(), testBatch(0))
	ie, ok := AsIntakeError(err)
	if !ok || ie.Code != CodeEmptyBatch {
		t.Errorf("expected %s, got %v", CodeEmptyBatch, err)
	}
}

func TestCoordinatorSuccess(t *testing.T) {
	pub := &fakePublisher{}
	repo := &fakeRepo{}
	ix := &fakeIndexer{}
	ar := &fakeArchiver{}
	coord := NewCoordinator(pub, repo, ix, ar)

	n, err := coord.Commit(context.Background(), testBatch(2))
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}
	if pub.calls != 1 {
		t.Errorf("expected one publish, got %d", pub.calls)
	}
	if repo.calls != 1 {
		t.Errorf("expected one save_batch call, got %d", repo.calls)
	}
	if len(repo.batches[0]) != 2 {
		t.Errorf("expected 2 docs persisted, got %d", len(repo.batches[0]))
	}
	if got := repo.batches[0][0]; got.ActivityName != "Bar Roma" || got.AuthorID != "u1" || got.AuthorName != "Mario" {
		t.Errorf("persisted doc carries wrong attribution: %+v", got)
	}
	if len(ix.indexed) != 1 || len(ar.archived) != 1 {
		t.Errorf("expected indexer and archiver to run once, got %d/%d", len(ix.indexed), len(ar.archived))
	}
}

func TestCoordinatorDeliveryFailure(t *testing.T) {
	pub := &fakePublisher{
		publishFn: func(context.Context, Batch) (Handle, error) {
			return nil, errors.New("discord down")
		},
	}
	repo := &fakeRepo{}
	coord := NewCoordinator(pub, repo, nil, nil)

	_, err := coord.Commit(context.Background(), testBatch(1))
	ie, ok := AsIntakeError(err)
	if !ok || ie.Code != CodeDeliveryFailed {
		t.Errorf("expected %s, got %v", CodeDeliveryFailed, err)
	}
	if repo.calls != 0 {
		t.Error("persistence must not be attempted when delivery fails")
	}
}

func TestCoordinatorRollbackOnPersistFailure(t *testing.T) {
	handle := &fakeHandle{}
	pub := &fakePublisher{
		publishFn: func(context.Context, Batch) (Handle, error) { return handle, nil },
	}
	repo := &fakeRepo{
		saveFn: func(context.Context, []store.Document) error {
			return errors.New("db down")
		},
	}
	ix := &fakeIndexer{}
	coord := NewCoordinator(pub, repo, ix, nil)

	_, err := coord.Commit(context.Background(), testBatch(3))
	ie, ok := AsIntakeError(err)
	if !ok || ie.Code != CodePersistenceFailed {
		t.Errorf("expected %s, got %v", CodePersistenceFailed, err)
	}
	if handle.retracts != 1 {
		t.Errorf("retract must be invoked exactly once, got %d", handle.retracts)
	}
	if len(ix.indexed) != 0 {
		t.Error("nothing may be indexed after a failed persist")
	}
}

func TestCoordinatorDualFailure(t *testing.T) {
	handle := &fakeHandle{
		retractFn: func(context.Context) error { return errors.New("message gone") },
	}
	pub := &fakePublisher{
		publishFn: func(context.Context, Batch) (Handle, error) { return handle, nil },
	}
	repo := &fakeRepo{
		saveFn: func(context.Context, []store.Document) error { return errors.New("db down") },
	}
	coord := NewCoordinator(pub, repo, nil, nil)

	_, err := coord.Commit(context.Background(), testBatch(1))
	ie, ok := AsIntakeError(err)
	if !ok || ie.Code != CodePersistenceFailed {
		t.Errorf("expected %s, got %v", CodePersistenceFailed, err)
	}
	// The retraction failure must not mask the persistence failure, but the
	// user message has to escalate.
	if ie.UserMessage == errPersistenceFailed().UserMessage {
		t.Error("dual failure must surface differently from a plain persistence failure")
	}
	if handle.retracts != 1 {
		t.Errorf("retract must still be attempted exactly once, got %d", handle.retracts)
	}
}
