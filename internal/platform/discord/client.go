// Package discord adapts the platform interfaces to a discordgo session.
package discord

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// historyPageSize is the largest page the message history endpoint returns.
const historyPageSize = 100

// ticketPermissions is what the owner and added participants may do in a ticket channel.
const ticketPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles

// Client implements platform.Client for a single guild.
type Client struct {
	session *discordgo.Session
	guildID string
}

var _ platform.Client = (*Client)(nil)

// NewClient wraps an open session.
func NewClient(session *discordgo.Session, guildID string) *Client {
	return &Client{session: session, guildID: guildID}
}

func (c *Client) CreateChannel(ctx context.Context, spec platform.ChannelSpec) (string, error) {
	ch, err := c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
		Name:     spec.Name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: spec.ParentID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify("create channel", err)
	}
	return ch.ID, nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return classify("delete channel", err)
}

func (c *Client) RenameChannel(ctx context.Context, channelID, name string) error {
	_, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return classify("rename channel", err)
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg platform.Message) (string, error) {
	m, err := c.session.ChannelMessageSendComplex(channelID, renderSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return "", classify("send message", err)
	}
	return m.ID, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, msg platform.Message) error {
	_, err := c.session.ChannelMessageEditComplex(renderEdit(channelID, messageID, msg), discordgo.WithContext(ctx))
	return classify("edit message", err)
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return classify("delete message", c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (*platform.PostedMessage, error) {
	m, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("fetch message", err)
	}
	pm := parsePosted(m)
	return &pm, nil
}

// ChannelMessages pages backwards through the whole history and returns it
// oldest first.
func (c *Client) ChannelMessages(ctx context.Context, channelID string) ([]platform.PostedMessage, error) {
	var (
		out    []platform.PostedMessage
		before string
	)
	for {
		page, err := c.session.ChannelMessages(channelID, historyPageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify("read history", err)
		}
		for _, m := range page {
			out = append(out, parsePosted(m))
		}
		if len(page) < historyPageSize {
			break
		}
		before = page[len(page)-1].ID
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (c *Client) GrantAccess(ctx context.Context, channelID, userID string) error {
	err := c.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember,
		ticketPermissions, 0, discordgo.WithContext(ctx))
	return classify("grant access", err)
}

func (c *Client) RevokeAccess(ctx context.Context, channelID, userID string) error {
	return classify("revoke access", c.session.ChannelPermissionDelete(channelID, userID, discordgo.WithContext(ctx)))
}

func (c *Client) FetchMember(ctx context.Context, userID string) (*platform.Member, error) {
	m, err := c.session.GuildMember(c.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("fetch member", err)
	}
	return toMember(m), nil
}

func (c *Client) SendDirect(ctx context.Context, userID string, msg platform.Message) error {
	ch, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return classify("open direct channel", err)
	}
	_, err = c.session.ChannelMessageSendComplex(ch.ID, renderSend(msg), discordgo.WithContext(ctx))
	return classify("send direct", err)
}

func toMember(m *discordgo.Member) *platform.Member {
	member := &platform.Member{
		DisplayName: displayName(m, m.User),
		RoleIDs:     append([]string(nil), m.Roles...),
	}
	if m.User != nil {
		member.UserID = m.User.ID
		member.AvatarURL = m.User.AvatarURL("")
	}
	return member
}

// classify maps REST failures onto platform error kinds. A nil err stays nil.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound:
			return platform.NewError(platform.KindNotFound, op, err)
		case http.StatusForbidden, http.StatusUnauthorized:
			return platform.NewError(platform.KindPermissionDenied, op, err)
		}
	}
	return platform.NewError(platform.KindTransient, op, err)
}
