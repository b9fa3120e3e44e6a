// Package bot is the Discord presentation layer. It registers the slash
// commands and translates interactions into intake and store operations; all
// workflow state lives in the intake package, never in the UI.
package bot

import (
	"fmt"
	"log"

	"archivio/bot/internal/intake"
	"archivio/bot/internal/search"
	"archivio/bot/internal/store"

	"github.com/bwmarrin/discordgo"
)

// Bot wires the Discord session to the intake manager and the store.
type Bot struct {
	session *discordgo.Session
	manager *intake.Manager
	store   *store.PostgresStore
	search  *search.Service
	guildID string
}

// New creates a Bot. guildID may be empty to register commands globally.
func New(session *discordgo.Session, manager *intake.Manager, st *store.PostgresStore, searchSvc *search.Service, guildID string) *Bot {
	return &Bot{
		session: session,
		manager: manager,
		store:   st,
		search:  searchSvc,
		guildID: guildID,
	}
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "documents",
		Description: "Carica uno o più documenti per un'attività",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "activity",
				Description: "Nome dell'attività",
				Required:    true,
			},
		},
	},
	{
		Name:        "ispezione",
		Description: "Carica un documento di ispezione per un'attività",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "activity",
				Description: "Nome dell'attività da ispezionare",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "attachment",
				Description: "File dell'ispezione",
				Required:    true,
			},
		},
	},
	{
		Name:        "sanzione",
		Description: "Applica una sanzione a un'attività",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "activity",
				Description: "Nome dell'attività da sanzionare",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "reason",
				Description: "Motivo della sanzione",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "sanction",
				Description: "Dettagli della sanzione",
				Required:    true,
			},
		},
	},
	{
		Name:        "stipendio",
		Description: "Calcola lo stipendio di un utente basato sui documenti inseriti",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "L'utente di cui calcolare lo stipendio",
				Required:    true,
			},
		},
	},
	{
		Name:        "cerca",
		Description: "Cerca tra i documenti caricati",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Testo da cercare",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "activity",
				Description: "Limita la ricerca a un'attività",
				Required:    false,
			},
		},
	},
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	b.session.Identify.Intents = discordgo.IntentsGuilds
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	log.Printf("bot: logged in as %s", b.session.State.User.String())

	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, commands); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	log.Printf("bot: registered %d commands", len(commands))
	return nil
}

// Close shuts down the gateway connection.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "documents":
			b.handleDocuments(s, i)
		case "ispezione":
			b.handleInspection(s, i)
		case "sanzione":
			b.handleSanction(s, i)
		case "stipendio":
			b.handleSalary(s, i)
		case "cerca":
			b.handleSearch(s, i)
		}
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	case discordgo.InteractionModalSubmit:
		b.handleModal(s, i)
	}
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func displayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.Nick != "" {
		return i.Member.Nick
	}
	user := interactionUser(i)
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

func intakeAuthor(i *discordgo.InteractionCreate) intake.Author {
	user := interactionUser(i)
	return intake.Author{
		ID:          user.ID,
		DisplayName: displayName(i),
		AvatarURL:   user.AvatarURL(""),
	}
}

func hasPermission(i *discordgo.InteractionCreate, perm int64) bool {
	return i.Member != nil && i.Member.Permissions&perm != 0
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("bot: respond: %v", err)
	}
}

// respondIntakeError turns an intake failure into its localized user message.
func respondIntakeError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if ie, ok := intake.AsIntakeError(err); ok {
		respondEphemeral(s, i, ie.UserMessage)
		return
	}
	log.Printf("bot: unexpected error: %v", err)
	respondEphemeral(s, i, "Si è verificato un errore. Riprova più tardi.")
}
