// Package publish delivers finalized document batches to Discord channels
// and supports retracting a delivery when a later commit step fails.
package publish

import (
	"context"
	"errors"
	"fmt"

	"archivio/bot/internal/intake"

	"github.com/bwmarrin/discordgo"
)

// DiscordPublisher sends document batches as channel messages.
type DiscordPublisher struct {
	session *discordgo.Session
}

// NewDiscordPublisher wraps an open Discord session.
func NewDiscordPublisher(session *discordgo.Session) *DiscordPublisher {
	return &DiscordPublisher{session: session}
}

// Publish sends the whole batch to the batch's channel. A batch larger than
// Discord's per-message limit goes out as consecutive messages; if any send
// fails, the messages already sent are deleted so the channel never shows a
// partial batch.
func (p *DiscordPublisher) Publish(ctx context.Context, batch intake.Batch) (intake.Handle, error) {
	handle := &messageHandle{session: p.session, channelID: batch.ChannelID}

	for _, msg := range renderBatch(batch) {
		sent, err := p.session.ChannelMessageSendComplex(batch.ChannelID, msg, discordgo.WithContext(ctx))
		if err != nil {
			if rerr := handle.Retract(ctx); rerr != nil {
				return nil, fmt.Errorf("send batch message: %w (cleanup also failed: %v)", err, rerr)
			}
			return nil, fmt.Errorf("send batch message: %w", err)
		}
		handle.messageIDs = append(handle.messageIDs, sent.ID)
	}

	return handle, nil
}

// messageHandle retracts a published batch by deleting its messages.
type messageHandle struct {
	session    *discordgo.Session
	channelID  string
	messageIDs []string
}

// Retract deletes every message of the batch. Deletion is best-effort per
// message; all failures are reported together.
func (h *messageHandle) Retract(ctx context.Context) error {
	var errs []error
	for _, id := range h.messageIDs {
		if err := h.session.ChannelMessageDelete(h.channelID, id, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("delete message %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
