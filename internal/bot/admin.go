package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"archivio/bot/internal/payroll"
	"archivio/bot/internal/search"
	"archivio/bot/internal/store"
	"archivio/bot/internal/validate"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const (
	colorInspection = 0x3498db
	colorSanction   = 0xe74c3c
	colorSalary     = 0x2ecc71
)

const maxAttachmentSize = 8 << 20

func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	data := i.ApplicationCommandData()
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt
	}
	return options
}

// handleInspection downloads the attached file and records it as an
// inspection, then reposts it publicly in the invoking channel.
func (b *Bot) handleInspection(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasPermission(i, discordgo.PermissionManageMessages) {
		respondEphemeral(s, i, "Non hai i permessi per caricare ispezioni!")
		return
	}

	options := commandOptions(i)
	activity := options["activity"].StringValue()
	attachmentID, _ := options["attachment"].Value.(string)
	attachment := i.ApplicationCommandData().Resolved.Attachments[attachmentID]
	if attachment == nil {
		respondEphemeral(s, i, "Allegato mancante.")
		return
	}

	// The download plus insert can run long; acknowledge first.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Printf("bot: defer inspection: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	content, err := downloadAttachment(ctx, attachment.URL)
	if err != nil {
		log.Printf("bot: download inspection attachment: %v", err)
		followupEphemeral(s, i, "Non sono riuscito a scaricare l'allegato. Riprova.")
		return
	}

	insp := store.Inspection{
		ID:           uuid.NewString(),
		ActivityName: activity,
		Content:      content,
		AuthorID:     interactionUser(i).ID,
		AuthorName:   displayName(i),
	}
	if err := b.store.InsertInspection(ctx, insp); err != nil {
		log.Printf("bot: insert inspection: %v", err)
		followupEphemeral(s, i, "Si è verificato un errore durante il salvataggio dell'ispezione.")
		return
	}

	filename := validate.Filename(fmt.Sprintf("ispezione_%s_%d.txt", activity, time.Now().Unix()))
	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       fmt.Sprintf("Ispezione per %s", activity),
			Description: "Ispezione caricata con successo.",
			Color:       colorInspection,
			Author: &discordgo.MessageEmbedAuthor{
				Name:    displayName(i),
				IconURL: interactionUser(i).AvatarURL(""),
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: "text/plain",
			Reader:      bytes.NewReader(content),
		}},
	})
	if err != nil {
		log.Printf("bot: followup inspection: %v", err)
	}
}

func downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment fetch returned %s", resp.Status)
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxAttachmentSize {
		return nil, fmt.Errorf("attachment exceeds %d bytes", maxAttachmentSize)
	}
	return content, nil
}

func (b *Bot) handleSanction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasPermission(i, discordgo.PermissionManageMessages) {
		respondEphemeral(s, i, "Non hai i permessi per applicare sanzioni!")
		return
	}

	options := commandOptions(i)
	sanction := store.Sanction{
		ID:           uuid.NewString(),
		ActivityName: options["activity"].StringValue(),
		Reason:       options["reason"].StringValue(),
		SanctionText: options["sanction"].StringValue(),
		AuthorID:     interactionUser(i).ID,
		AuthorName:   displayName(i),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.store.InsertSanction(ctx, sanction); err != nil {
		log.Printf("bot: insert sanction: %v", err)
		respondEphemeral(s, i, "Si è verificato un errore durante il salvataggio della sanzione.")
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title: fmt.Sprintf("Sanzione per %s", sanction.ActivityName),
				Color: colorSanction,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Motivo", Value: sanction.Reason},
					{Name: "Sanzione", Value: sanction.SanctionText},
				},
				Author: &discordgo.MessageEmbedAuthor{
					Name:    displayName(i),
					IconURL: interactionUser(i).AvatarURL(""),
				},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}},
		},
	})
	if err != nil {
		log.Printf("bot: respond sanction: %v", err)
	}
}

func (b *Bot) handleSalary(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasPermission(i, discordgo.PermissionManageMessages) {
		respondEphemeral(s, i, "Non hai i permessi per consultare gli stipendi!")
		return
	}

	target := commandOptions(i)["user"].UserValue(s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	to := time.Now().UTC()
	from := to.Add(-payroll.Window)

	docs, err := b.store.CountDocumentsByAuthor(ctx, target.ID, from, to)
	if err != nil {
		log.Printf("bot: count documents: %v", err)
		respondEphemeral(s, i, "Si è verificato un errore durante il calcolo dello stipendio.")
		return
	}
	inspections, err := b.store.CountInspectionsByAuthor(ctx, target.ID, from, to)
	if err != nil {
		log.Printf("bot: count inspections: %v", err)
		respondEphemeral(s, i, "Si è verificato un errore durante il calcolo dello stipendio.")
		return
	}

	breakdown := payroll.Breakdown{Documents: docs, Inspections: inspections}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       fmt.Sprintf("Stipendio di %s", target.Username),
				Description: "Calcolato sugli ultimi 7 giorni.",
				Color:       colorSalary,
				Fields: []*discordgo.MessageEmbedField{
					{
						Name:  "Documenti Normali",
						Value: fmt.Sprintf("%d documenti (%s)", breakdown.Documents, payroll.FormatEUR(breakdown.DocumentTotal())),
					},
					{
						Name:  "Ispezioni",
						Value: fmt.Sprintf("%d ispezioni (%s)", breakdown.Inspections, payroll.FormatEUR(breakdown.InspectionTotal())),
					},
					{
						Name:  "Totale",
						Value: payroll.FormatEUR(breakdown.Total()),
					},
				},
				Thumbnail: &discordgo.MessageEmbedThumbnail{URL: target.AvatarURL("")},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}},
		},
	})
	if err != nil {
		log.Printf("bot: respond salary: %v", err)
	}
}

func (b *Bot) handleSearch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if b.search == nil {
		respondEphemeral(s, i, "La ricerca non è disponibile su questo server.")
		return
	}

	options := commandOptions(i)
	query := search.Query{Text: options["query"].StringValue(), Limit: 10}
	if opt, ok := options["activity"]; ok {
		query.Activity = opt.StringValue()
	}

	resp := b.search.Search(query)
	if len(resp.Results) == 0 {
		respondEphemeral(s, i, fmt.Sprintf("Nessun documento trovato per \"%s\".", query.Text))
		return
	}

	var sb strings.Builder
	for _, r := range resp.Results {
		snippet := r.Snippet
		if runes := []rune(snippet); len(runes) > 200 {
			snippet = string(runes[:200]) + "…"
		}
		fmt.Fprintf(&sb, "**%s** · %s\n%s\n\n", r.Activity, r.AuthorName, snippet)
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{{
				Title:       fmt.Sprintf("Risultati per \"%s\"", query.Text),
				Description: sb.String(),
				Color:       colorInspection,
				Footer: &discordgo.MessageEmbedFooter{
					Text: fmt.Sprintf("%d risultati totali", resp.Total),
				},
			}},
		},
	})
	if err != nil {
		log.Printf("bot: respond search: %v", err)
	}
}
