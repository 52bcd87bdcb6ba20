package discord

import (
	"bytes"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// maxButtonsPerRow is the platform limit for one action row.
const maxButtonsPerRow = 5

func renderEmbeds(embeds []platform.Embed) []*discordgo.MessageEmbed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.AuthorName != "" {
			me.Author = &discordgo.MessageEmbedAuthor{Name: e.AuthorName, IconURL: e.AuthorIconURL}
		}
		if e.ImageURL != "" {
			me.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
		}
		if e.FooterText != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.FooterText}
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, me)
	}
	return out
}

func buttonStyle(s platform.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case platform.StyleSecondary:
		return discordgo.SecondaryButton
	case platform.StyleSuccess:
		return discordgo.SuccessButton
	case platform.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func renderComponents(msg platform.Message) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	if msg.Select != nil {
		options := make([]discordgo.SelectMenuOption, 0, len(msg.Select.Options))
		for _, o := range msg.Select.Options {
			opt := discordgo.SelectMenuOption{Label: o.Label, Value: o.Value, Description: o.Description}
			if o.Emoji != "" {
				opt.Emoji = &discordgo.ComponentEmoji{Name: o.Emoji}
			}
			options = append(options, opt)
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    msg.Select.CustomID,
				Placeholder: msg.Select.Placeholder,
				Options:     options,
			},
		}})
	}
	for start := 0; start < len(msg.Buttons); start += maxButtonsPerRow {
		end := start + maxButtonsPerRow
		if end > len(msg.Buttons) {
			end = len(msg.Buttons)
		}
		row := discordgo.ActionsRow{}
		for _, b := range msg.Buttons[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				CustomID: b.CustomID,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func renderFiles(files []platform.File) []*discordgo.File {
	if len(files) == 0 {
		return nil
	}
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{Name: f.Name, ContentType: f.ContentType, Reader: bytes.NewReader(f.Data)})
	}
	return out
}

func renderSend(msg platform.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     renderEmbeds(msg.Embeds),
		Components: renderComponents(msg),
		Files:      renderFiles(msg.Files),
	}
}

func renderEdit(channelID, messageID string, msg platform.Message) *discordgo.MessageEdit {
	content := msg.Content
	embeds := renderEmbeds(msg.Embeds)
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	components := renderComponents(msg)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return &discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	}
}

func renderForm(form *platform.Form) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(form.Inputs))
	for _, in := range form.Inputs {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID: in.CustomID,
				Label:    in.Label,
				Style:    discordgo.TextInputShort,
				Required: in.Required,
			},
		}})
	}
	return &discordgo.InteractionResponseData{
		CustomID:   form.CustomID,
		Title:      form.Title,
		Components: rows,
	}
}

func parsePosted(m *discordgo.Message) platform.PostedMessage {
	pm := platform.PostedMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		pm.AuthorID = m.Author.ID
		pm.AuthorName = m.Author.Username
		pm.AuthorBot = m.Author.Bot
	}
	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		pe := platform.Embed{Title: e.Title, Description: e.Description, Color: e.Color}
		for _, f := range e.Fields {
			pe.Fields = append(pe.Fields, platform.Field{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		pm.Embeds = append(pm.Embeds, pe)
	}
	for _, a := range m.Attachments {
		pm.Attachments = append(pm.Attachments, a.URL)
	}
	return pm
}

func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
