package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// interactionAPI is the slice of the session a responder needs.
type interactionAPI interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(i *discordgo.Interaction, options ...discordgo.RequestOption) error
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// responder answers one interaction. After Defer, Respond edits the
// deferred reply instead of creating one.
type responder struct {
	api         interactionAPI
	interaction *discordgo.Interaction
	deferred    bool
}

func newResponder(api interactionAPI, i *discordgo.Interaction) *responder {
	return &responder{api: api, interaction: i}
}

func (r *responder) Defer(ctx context.Context, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := r.api.InteractionRespond(r.interaction, resp, discordgo.WithContext(ctx)); err != nil {
		return classify("defer interaction", err)
	}
	r.deferred = true
	return nil
}

func (r *responder) Respond(ctx context.Context, resp platform.Response) error {
	switch {
	case resp.Form != nil:
		return classify("open form", r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: renderForm(resp.Form),
		}, discordgo.WithContext(ctx)))

	case resp.Dismiss:
		if r.interaction.Message != nil {
			if err := r.api.ChannelMessageDelete(r.interaction.ChannelID, r.interaction.Message.ID, discordgo.WithContext(ctx)); err != nil {
				return classify("dismiss message", err)
			}
		}
		if r.deferred {
			// Drop the placeholder left by Defer.
			return classify("remove deferred reply", r.api.InteractionResponseDelete(r.interaction, discordgo.WithContext(ctx)))
		}
		return classify("acknowledge dismiss", r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}, discordgo.WithContext(ctx)))

	case r.deferred:
		content := resp.Message.Content
		embeds := renderEmbeds(resp.Message.Embeds)
		components := renderComponents(resp.Message)
		_, err := r.api.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
			Content:    &content,
			Embeds:     &embeds,
			Components: &components,
			Files:      renderFiles(resp.Message.Files),
		}, discordgo.WithContext(ctx))
		return classify("complete interaction", err)

	default:
		data := &discordgo.InteractionResponseData{
			Content:    resp.Message.Content,
			Embeds:     renderEmbeds(resp.Message.Embeds),
			Components: renderComponents(resp.Message),
			Files:      renderFiles(resp.Message.Files),
		}
		if resp.Ephemeral {
			data.Flags = discordgo.MessageFlagsEphemeral
		}
		return classify("respond interaction", r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		}, discordgo.WithContext(ctx)))
	}
}
