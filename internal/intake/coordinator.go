package intake

import (
	"context"
	"log"

	"archivio/bot/internal/staging"
	"archivio/bot/internal/store"
)

// Author identifies who is attaching or committing a batch.
type Author struct {
	ID          string
	DisplayName string
	AvatarURL   string
}

// Batch is a full staged batch handed to the channel publisher as one unit.
type Batch struct {
	ChannelID string
	Activity  string
	Author    Author
	Items     []staging.Item
}

// Publisher delivers a rendered batch to the destination channel. The handle
// retracts the delivery if persistence fails afterwards.
type Publisher interface {
	Publish(ctx context.Context, batch Batch) (Handle, error)
}

// Handle points at a published batch so it can be retracted later.
type Handle interface {
	Retract(ctx context.Context) error
}

// Repository is the long-term document store. SaveDocumentBatch must be
// all-or-nothing: either every document is durably recorded or none is.
type Repository interface {
	SaveDocumentBatch(ctx context.Context, docs []store.Document) error
}

// Indexer mirrors committed documents into the search layer. Implementations
// must not block the commit path.
type Indexer interface {
	IndexCommitted(docs []store.Document)
}

// Archiver copies committed content to cold storage. Implementations must
// not block the commit path.
type Archiver interface {
	ArchiveCommitted(docs []store.Document)
}

// Coordinator executes the all-or-nothing hand-off for a staged batch:
// publish to the channel, persist the batch, and on persistence failure
// retract the published message as the compensating action.
//
// Publish comes before persist on purpose: channel delivery is the
// user-visible confirmation and is cheap to retract, while the relational
// store is the source of truth for payroll and audit queries. This ordering
// keeps the compensating action simple and always attemptable.
type Coordinator struct {
	publisher Publisher
	repo      Repository
	indexer   Indexer
	archiver  Archiver
}

// NewCoordinator wires a coordinator. indexer and archiver may be nil.
func NewCoordinator(publisher Publisher, repo Repository, indexer Indexer, archiver Archiver) *Coordinator {
	return &Coordinator{
		publisher: publisher,
		repo:      repo,
		indexer:   indexer,
		archiver:  archiver,
	}
}

// Commit publishes then persists the batch. On persistence failure the
// published message is retracted exactly once and the staged items are left
// untouched so the caller can retry. Returns the number of committed items.
func (c *Coordinator) Commit(ctx context.Context, batch Batch) (int, error) {
	if len(batch.Items) == 0 {
		return 0, errEmptyBatch()
	}

	handle, err := c.publisher.Publish(ctx, batch)
	if err != nil {
		log.Printf("intake: publish batch for %q: %v", batch.Activity, err)
		return 0, errDeliveryFailed()
	}

	docs := make([]store.Document, 0, len(batch.Items))
	for _, item := range batch.Items {
		docs = append(docs, store.Document{
			ID:           item.ID,
			ActivityName: batch.Activity,
			Content:      item.Content,
			Context:      item.Context,
			AuthorID:     batch.Author.ID,
			AuthorName:   batch.Author.DisplayName,
		})
	}

	if err := c.repo.SaveDocumentBatch(ctx, docs); err != nil {
		log.Printf("intake: persist batch for %q: %v", batch.Activity, err)
		if rerr := handle.Retract(ctx); rerr != nil {
			// The published message may still be in the channel with no
			// record behind it. Surface both failures; this needs manual
			// reconciliation.
			log.Printf("intake: CRITICAL: retract after failed persist for %q also failed, published batch may be orphaned: %v", batch.Activity, rerr)
			return 0, errDualFailure()
		}
		return 0, errPersistenceFailed()
	}

	if c.indexer != nil {
		c.indexer.IndexCommitted(docs)
	}
	if c.archiver != nil {
		c.archiver.ArchiveCommitted(docs)
	}

	return len(batch.Items), nil
}
