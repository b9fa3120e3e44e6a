package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"archivio/bot/internal/intake"
	"archivio/bot/internal/staging"

	"github.com/bwmarrin/discordgo"
)

const commitTimeout = 30 * time.Second

// handleDocuments opens (or resumes) an upload session for the activity and
// shows the interactive controls in the invoking channel.
func (b *Bot) handleDocuments(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasPermission(i, discordgo.PermissionAttachFiles) {
		respondEphemeral(s, i, "Non hai i permessi per caricare documenti!")
		return
	}

	activity := i.ApplicationCommandData().Options[0].StringValue()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := b.manager.Open(ctx, activity, interactionUser(i).ID, i.ChannelID)
	if err != nil {
		respondIntakeError(s, i, err)
		return
	}

	content := fmt.Sprintf("**Caricamento documenti per %s**\nScegli il tipo di documento, poi premi **Invia** per pubblicare tutto insieme.", activity)
	if n := sess.Count(); n > 0 {
		content += fmt.Sprintf("\nDocumenti in attesa: %d", n)
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: intakeComponents(activity),
		},
	})
	if err != nil {
		log.Printf("bot: respond documents: %v", err)
	}
}

func intakeComponents(activity string) []discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(staging.Types))
	for _, dt := range staging.Types {
		options = append(options, discordgo.SelectMenuOption{
			Label: string(dt),
			Value: string(dt),
		})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    componentID(ciActionType, activity),
					Placeholder: "Tipo di documento",
					Options:     options,
				},
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Invia",
					Style:    discordgo.SuccessButton,
					CustomID: componentID(ciActionSubmit, activity),
				},
				discordgo.Button{
					Label:    "Annulla",
					Style:    discordgo.DangerButton,
					CustomID: componentID(ciActionCancel, activity),
				},
			},
		},
	}
}

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	action, activity, ok := parseComponentID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	switch action {
	case ciActionType:
		b.openDocumentModal(s, i, activity)
	case ciActionSubmit:
		b.submitBatch(s, i, activity)
	case ciActionCancel:
		b.cancelBatch(s, i, activity)
	}
}

func (b *Bot) openDocumentModal(s *discordgo.Session, i *discordgo.InteractionCreate, activity string) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return
	}
	docType := values[0]

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: modalID(docType, activity),
			Title:    "Carica documento",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "doc_content",
							Label:       "Contenuto del documento",
							Style:       discordgo.TextInputParagraph,
							Required:    true,
							MaxLength:   2000,
							Placeholder: "Testo del documento",
						},
					},
				},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "doc_context",
							Label:       "Contesto",
							Style:       discordgo.TextInputParagraph,
							Required:    true,
							MaxLength:   1000,
							Placeholder: "Breve descrizione del contesto",
						},
					},
				},
			},
		},
	})
	if err != nil {
		log.Printf("bot: open modal: %v", err)
	}
}

func (b *Bot) handleModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	docType, activity, ok := parseModalID(data.CustomID)
	if !ok {
		return
	}

	sess, ok := b.manager.Lookup(activity, interactionUser(i).ID)
	if !ok {
		respondEphemeral(s, i, "La sessione di caricamento è scaduta. Usa di nuovo /documents.")
		return
	}

	content := modalValue(data, "doc_content")
	docCtx := modalValue(data, "doc_context")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := sess.Attach(ctx, staging.DocumentType(docType), content, docCtx)
	if err != nil {
		respondIntakeError(s, i, err)
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Documento allegato. In attesa di invio: %d.", count))
}

func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		actions, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actions.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}

func (b *Bot) submitBatch(s *discordgo.Session, i *discordgo.InteractionCreate, activity string) {
	sess, ok := b.manager.Lookup(activity, interactionUser(i).ID)
	if !ok {
		respondEphemeral(s, i, "La sessione di caricamento è scaduta. Usa di nuovo /documents.")
		return
	}

	// Publishing and persisting can exceed the 3 second interaction window,
	// so acknowledge first and report through a followup.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.Printf("bot: defer submit: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	count, err := sess.Commit(ctx, intakeAuthor(i))
	if err != nil {
		followupEphemeral(s, i, commitFailureMessage(err))
		return
	}
	followupEphemeral(s, i, fmt.Sprintf("✅ %d documenti inviati e salvati!", count))
}

func commitFailureMessage(err error) string {
	if ie, ok := intake.AsIntakeError(err); ok {
		return ie.UserMessage
	}
	return "Si è verificato un errore durante l'invio. Riprova più tardi."
}

func (b *Bot) cancelBatch(s *discordgo.Session, i *discordgo.InteractionCreate, activity string) {
	sess, ok := b.manager.Lookup(activity, interactionUser(i).ID)
	if !ok {
		respondEphemeral(s, i, "Nessun caricamento in corso per questa attività.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess.Discard(ctx)
	respondEphemeral(s, i, "Caricamento annullato, i documenti in attesa sono stati scartati.")
}

func followupEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Printf("bot: followup: %v", err)
	}
}
