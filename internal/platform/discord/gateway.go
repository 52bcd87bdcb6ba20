package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/api/interaction"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Intents is what the bot needs from the gateway: guild structure, messages
// and their content for intake.
const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildMessages |
	discordgo.IntentMessageContent

// interactionTimeout bounds the work done for one interaction; the platform
// invalidates interaction tokens after fifteen minutes.
const interactionTimeout = time.Minute

// Commands lists the slash commands the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	manageChannels := int64(discordgo.PermissionManageChannels)
	return []*discordgo.ApplicationCommand{
		{
			Name:                     interaction.CommandPanel,
			Description:              "Post the ticket category picker in this channel",
			DefaultMemberPermissions: &manageChannels,
		},
	}
}

// Gateway turns gateway events into router calls.
type Gateway struct {
	session *discordgo.Session
	router  *interaction.Router
	baseCtx context.Context
	logger  *zap.Logger
	onReady func(ctx context.Context)
}

// NewGateway builds a gateway. onReady runs once per READY, on its own goroutine.
func NewGateway(ctx context.Context, session *discordgo.Session, router *interaction.Router, onReady func(context.Context), logger *zap.Logger) *Gateway {
	return &Gateway{session: session, router: router, baseCtx: ctx, logger: logger, onReady: onReady}
}

// Register attaches the handlers to the session. Call before Open.
func (g *Gateway) Register() {
	g.session.Identify.Intents = Intents
	g.session.AddHandler(g.handleReady)
	g.session.AddHandler(g.handleInteraction)
	g.session.AddHandler(g.handleMessage)
}

// RegisterCommands overwrites the guild's command set.
func (g *Gateway) RegisterCommands(appID, guildID string) error {
	_, err := g.session.ApplicationCommandBulkOverwrite(appID, guildID, Commands())
	return classify("register commands", err)
}

func (g *Gateway) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	g.logger.Info("gateway ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	if g.onReady != nil {
		go g.onReady(g.baseCtx)
	}
}

func (g *Gateway) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	msg, ok := toIncoming(m.Message)
	if !ok {
		return
	}
	if g.router.HandleMessage(msg) {
		g.logger.Debug("message delivered to intake", zap.String("channel_id", msg.ChannelID))
	}
}

func (g *Gateway) handleInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(g.baseCtx, interactionTimeout)
	defer cancel()

	i := ic.Interaction
	resp := newResponder(s, i)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		g.router.HandleCommand(ctx, toCommand(i), resp)
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		if data.ComponentType == discordgo.SelectMenuComponent {
			g.router.HandleMenu(ctx, toMenu(i), resp)
			return
		}
		g.router.HandleButton(ctx, toButton(i), resp)
	case discordgo.InteractionModalSubmit:
		g.router.HandleForm(ctx, toForm(i), resp)
	default:
		g.logger.Debug("ignoring interaction", zap.Int("type", int(i.Type)))
	}
}

func toIncoming(m *discordgo.Message) (platform.IncomingMessage, bool) {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return platform.IncomingMessage{}, false
	}
	return platform.IncomingMessage{
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		AuthorID:  m.Author.ID,
		Content:   m.Content,
	}, true
}

func toInteraction(i *discordgo.Interaction) interaction.Interaction {
	in := interaction.Interaction{ID: i.ID, ChannelID: i.ChannelID}
	if i.Message != nil {
		in.MessageID = i.Message.ID
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		in.Actor = domain.Actor{
			UserID:      i.Member.User.ID,
			DisplayName: displayName(i.Member, i.Member.User),
			RoleIDs:     append([]string(nil), i.Member.Roles...),
		}
	case i.User != nil:
		in.Actor = domain.Actor{UserID: i.User.ID, DisplayName: displayName(nil, i.User)}
	}
	return in
}

func toCommand(i *discordgo.Interaction) interaction.CommandEvent {
	return interaction.CommandEvent{Interaction: toInteraction(i), Name: i.ApplicationCommandData().Name}
}

func toMenu(i *discordgo.Interaction) interaction.MenuEvent {
	data := i.MessageComponentData()
	return interaction.MenuEvent{Interaction: toInteraction(i), CustomID: data.CustomID, Values: data.Values}
}

func toButton(i *discordgo.Interaction) interaction.ButtonEvent {
	return interaction.ButtonEvent{Interaction: toInteraction(i), CustomID: i.MessageComponentData().CustomID}
}

func toForm(i *discordgo.Interaction) interaction.FormEvent {
	data := i.ModalSubmitData()
	fields := make(map[string]string)
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if input, ok := c.(*discordgo.TextInput); ok {
				fields[input.CustomID] = input.Value
			}
		}
	}
	return interaction.FormEvent{Interaction: toInteraction(i), CustomID: data.CustomID, Fields: fields}
}
