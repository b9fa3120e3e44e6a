package publish

import (
	"bytes"
	"fmt"
	"time"

	"archivio/bot/internal/intake"
	"archivio/bot/internal/staging"
	"archivio/bot/internal/validate"

	"github.com/bwmarrin/discordgo"
)

const embedBlue = 0x3498db

// maxPerMessage is Discord's ceiling on embeds and attachments per message.
const maxPerMessage = 10

// itemEmbed renders one staged document as a channel embed.
func itemEmbed(batch intake.Batch, item staging.Item) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Documento per %s", batch.Activity),
		Description: item.Context,
		Color:       embedBlue,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tipo", Value: string(item.Type), Inline: true},
			{Name: "Caricato da", Value: fmt.Sprintf("<@%s>", batch.Author.ID), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Sistema Archivio Documenti"},
	}
	if batch.Author.DisplayName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    batch.Author.DisplayName,
			IconURL: batch.Author.AvatarURL,
		}
	}
	return embed
}

// itemFile renders one staged document as a .txt attachment.
func itemFile(batch intake.Batch, item staging.Item) *discordgo.File {
	name := validate.Filename(fmt.Sprintf("documento_%s_%d.txt", batch.Activity, item.Seq+1))
	return &discordgo.File{
		Name:        name,
		ContentType: "text/plain",
		Reader:      bytes.NewReader(item.Content),
	}
}

// renderBatch splits the batch into as few messages as Discord allows,
// keeping attach order across the chunks.
func renderBatch(batch intake.Batch) []*discordgo.MessageSend {
	var messages []*discordgo.MessageSend
	for start := 0; start < len(batch.Items); start += maxPerMessage {
		end := start + maxPerMessage
		if end > len(batch.Items) {
			end = len(batch.Items)
		}
		msg := &discordgo.MessageSend{}
		for _, item := range batch.Items[start:end] {
			msg.Embeds = append(msg.Embeds, itemEmbed(batch, item))
			msg.Files = append(msg.Files, itemFile(batch, item))
		}
		messages = append(messages, msg)
	}
	return messages
}
