package discord

import (
	"fmt"
	"log"

	"discord-statuskeeper/internal/interfaces"
	"discord-statuskeeper/internal/status"

	"github.com/bwmarrin/discordgo"
)

type Bot struct {
	session  *discordgo.Session
	svc      interfaces.StatusService
	config   BotConfig
	onReady  func()
	commands []*discordgo.ApplicationCommand
}

type BotConfig struct {
	Token   string
	GuildID string
}

// NewBot creates the Discord session wrapper. onReady runs once after the
// gateway reports ready, letting the caller kick off initialization that
// needs a live session.
func NewBot(config BotConfig, svc interfaces.StatusService, onReady func()) (*Bot, error) {
	session, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session:  session,
		svc:      svc,
		config:   config,
		onReady:  onReady,
		commands: make([]*discordgo.ApplicationCommand, 0),
	}

	bot.setupHandlers()
	bot.setupIntents()

	return bot, nil
}

func (b *Bot) setupHandlers() {
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.onSlashCommand)
}

func (b *Bot) setupIntents() {
	// Guild presences so the bot can observe its own presence for drift checks.
	b.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildPresences
}

func (b *Bot) Start() error {
	fmt.Println("🔌 Connecting to Discord...")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	return nil
}

func (b *Bot) Stop() error {
	fmt.Println("👋 Shutting down Discord bot...")

	// Clean up guild-scoped commands
	if b.config.GuildID != "" {
		for _, cmd := range b.commands {
			err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.config.GuildID, cmd.ID)
			if err != nil {
				log.Printf("❌ Failed to delete command %s: %v", cmd.Name, err)
			}
		}
	}

	return b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	fmt.Printf("✅ Bot connected as %s#%s\n", event.User.Username, event.User.Discriminator)

	if err := b.registerCommands(); err != nil {
		log.Printf("❌ Failed to register commands: %v", err)
	}

	if b.onReady != nil {
		b.onReady()
	}
}

// ConnectionStatus reports a human-readable gateway state for health checks.
func (b *Bot) ConnectionStatus() string {
	if b.session.State != nil && b.session.State.User != nil {
		return "online"
	}
	return "connecting"
}

// ApplyStatus implements the Presence interface: it pushes the desired
// status to the gateway. A cleared status sends an empty activity list.
func (b *Bot) ApplyStatus(st status.DesiredStatus) error {
	data := discordgo.UpdateStatusData{Status: string(discordgo.StatusOnline)}
	if activity, ok := activityFor(st); ok {
		data.Activities = []*discordgo.Activity{activity}
	}
	return b.session.UpdateStatusComplex(data)
}

// ObservedStatus implements the Presence interface. Discord only exposes
// a bot's own presence through guild state, so observation needs a
// configured guild; without one the reconciler re-asserts blindly.
func (b *Bot) ObservedStatus() (status.DesiredStatus, bool) {
	if b.config.GuildID == "" || b.session.State == nil || b.session.State.User == nil {
		return status.DesiredStatus{}, false
	}
	presence, err := b.session.State.Presence(b.config.GuildID, b.session.State.User.ID)
	if err != nil || presence == nil {
		return status.DesiredStatus{}, false
	}
	if len(presence.Activities) == 0 {
		return status.Cleared(), true
	}
	return observedFromActivity(presence.Activities[0]), true
}

// ApplyAboutMe implements the Presence interface: the about-me text goes
// through the user profile endpoint, not the gateway presence update.
func (b *Bot) ApplyAboutMe(text string) error {
	payload := struct {
		Bio string `json:"bio"`
	}{Bio: text}
	_, err := b.session.Request("PATCH", discordgo.EndpointUser("@me"), payload)
	return err
}

func activityFor(st status.DesiredStatus) (*discordgo.Activity, bool) {
	switch st.ActivityType {
	case status.ActivityPlaying:
		return &discordgo.Activity{Name: st.Text, Type: discordgo.ActivityTypeGame}, true
	case status.ActivityStreaming:
		return &discordgo.Activity{Name: st.Text, Type: discordgo.ActivityTypeStreaming, URL: st.URL}, true
	case status.ActivityListening:
		return &discordgo.Activity{Name: st.Text, Type: discordgo.ActivityTypeListening}, true
	case status.ActivityWatching:
		return &discordgo.Activity{Name: st.Text, Type: discordgo.ActivityTypeWatching}, true
	case status.ActivityCompeting:
		return &discordgo.Activity{Name: st.Text, Type: discordgo.ActivityTypeCompeting}, true
	case status.ActivityCustom:
		return &discordgo.Activity{Name: st.Text, Type: discordgo.ActivityTypeCustom, State: st.Text}, true
	default:
		return nil, false
	}
}

func observedFromActivity(a *discordgo.Activity) status.DesiredStatus {
	st := status.DesiredStatus{Text: a.Name, URL: a.URL}
	switch a.Type {
	case discordgo.ActivityTypeGame:
		st.ActivityType = status.ActivityPlaying
	case discordgo.ActivityTypeStreaming:
		st.ActivityType = status.ActivityStreaming
	case discordgo.ActivityTypeListening:
		st.ActivityType = status.ActivityListening
	case discordgo.ActivityTypeWatching:
		st.ActivityType = status.ActivityWatching
	case discordgo.ActivityTypeCompeting:
		st.ActivityType = status.ActivityCompeting
	case discordgo.ActivityTypeCustom:
		st.ActivityType = status.ActivityCustom
		if a.State != "" {
			st.Text = a.State
		}
	default:
		st.ActivityType = status.ActivityCleared
	}
	return st
}
