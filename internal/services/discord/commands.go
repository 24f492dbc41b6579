package discord

import (
	"errors"
	"fmt"
	"log"

	apperrors "discord-statuskeeper/internal/errors"
	"discord-statuskeeper/internal/status"

	"github.com/bwmarrin/discordgo"
)

// adminOnly restricts command visibility to administrators at registration
// time; Discord's own permission system enforces it.
var adminOnly = int64(discordgo.PermissionAdministrator)

func (b *Bot) registerCommands() error {
	typeChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Playing", Value: string(status.ActivityPlaying)},
		{Name: "Streaming", Value: string(status.ActivityStreaming)},
		{Name: "Listening", Value: string(status.ActivityListening)},
		{Name: "Watching", Value: string(status.ActivityWatching)},
		{Name: "Competing", Value: string(status.ActivityCompeting)},
		{Name: "Custom", Value: string(status.ActivityCustom)},
	}

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "setstatus",
			Description:              "Set the bot's activity status",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "type",
					Description: "Activity type",
					Required:    true,
					Choices:     typeChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "Status text (required except for custom)",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "Stream URL (required for streaming)",
					Required:    false,
				},
			},
		},
		{
			Name:                     "clearstatus",
			Description:              "Clear the bot's activity status",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "status",
			Description:              "Show the bot's current desired status",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "aboutme",
			Description:              "Set the bot's profile about-me text",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "About-me text",
					Required:    true,
				},
			},
		},
	}

	for _, cmd := range commands {
		registeredCmd, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		b.commands = append(b.commands, registeredCmd)
		fmt.Printf("✅ Registered command: /%s\n", cmd.Name)
	}

	return nil
}

func (b *Bot) onSlashCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	// Defense-in-depth: Discord already gates these commands on the
	// administrator permission, but verify the invoking member too.
	if !invokerIsAdmin(i) {
		b.respond(s, i, "🔒 Administrator permission required.")
		return
	}

	commandName := i.ApplicationCommandData().Name

	switch commandName {
	case "setstatus":
		b.handleSetStatus(s, i)
	case "clearstatus":
		b.handleClearStatus(s, i)
	case "status":
		b.handleShowStatus(s, i)
	case "aboutme":
		b.handleAboutMe(s, i)
	default:
		log.Printf("❌ Unknown command: %s", commandName)
	}
}

func (b *Bot) handleSetStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	st, err := statusFromOptions(i.ApplicationCommandData().Options)
	if err != nil {
		b.respond(s, i, "❌ "+userMessage(err))
		return
	}

	// A new status replaces the whole document, but the about-me text is a
	// separate concern; carry the current one over.
	if current, ok := b.svc.Desired(); ok {
		st.AboutMeText = current.AboutMeText
	}

	if err := b.svc.SetDesired(st); err != nil {
		b.respond(s, i, "❌ "+userMessage(err))
		return
	}
	b.respond(s, i, fmt.Sprintf("✅ Status set to %s", st))
}

func (b *Bot) handleClearStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := b.svc.Clear(); err != nil {
		b.respond(s, i, "❌ "+userMessage(err))
		return
	}
	b.respond(s, i, "✅ Status cleared")
}

func (b *Bot) handleShowStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	st, ok := b.svc.Desired()
	if !ok {
		b.respond(s, i, "ℹ️ No status is set yet.")
		return
	}
	b.respond(s, i, fmt.Sprintf("ℹ️ Current status: %s", st))
}

func (b *Bot) handleAboutMe(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var text string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "text" {
			text = opt.StringValue()
		}
	}

	st, ok := b.svc.Desired()
	if !ok {
		st = status.Default()
	}
	st.AboutMeText = text

	if err := b.svc.SetDesired(st); err != nil {
		b.respond(s, i, "❌ "+userMessage(err))
		return
	}
	b.respond(s, i, "✅ About-me text updated")
}

// statusFromOptions builds a DesiredStatus from slash-command options.
// Invariant validation happens in the service; this only parses shape.
func statusFromOptions(options []*discordgo.ApplicationCommandInteractionDataOption) (status.DesiredStatus, error) {
	var typeStr, text, url string
	for _, opt := range options {
		switch opt.Name {
		case "type":
			typeStr = opt.StringValue()
		case "text":
			text = opt.StringValue()
		case "url":
			url = opt.StringValue()
		}
	}

	activityType, err := status.ParseActivityType(typeStr)
	if err != nil {
		return status.DesiredStatus{}, err
	}
	return status.DesiredStatus{ActivityType: activityType, Text: text, URL: url}, nil
}

// respond sends an ephemeral interaction reply so admin commands never
// leak into channel history.
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("❌ Failed to respond to interaction: %v", err)
	}
}

func invokerIsAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func userMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Type == apperrors.ErrTypeRemote && appErr.Cause != nil {
			return fmt.Sprintf("%s (%v)", appErr.UserFriendly, appErr.Cause)
		}
		return appErr.UserFriendly
	}
	return "Something went wrong handling that command."
}
