package service

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Custom ids of the controls the bot renders. The interaction router keys on them.
const (
	ControlSelectCategory = "select"
	ControlClose          = "close_ticket"
	ControlPanel          = "control_ticket"
	ControlRename         = "rename_ticket"
	ControlAddUser        = "add_user"
	ControlRemoveUser     = "remove_user"
	ControlCloseRequest   = "close_request"
	ControlConfirmClose   = "confirm_close"
	ControlCancelClose    = "cancel_close"

	FormRename        = "rename_ticket_modal"
	FormAddUser       = "add_user_modal"
	FormRemoveUser    = "remove_user_modal"
	FieldNewName      = "new_ticket_name"
	FieldAddUserID    = "user_id"
	FieldRemoveUserID = "user_id_remove"

	SelectCancelValue = "cancel"
)

const (
	colorSummary = 0xFFFFFF
	colorPanel   = 0x000000
	colorControl = 0x5865F2
	colorNotice  = 460551
	colorOK      = 0x00FF00
	colorRemoved = 0xFF0000

	welcomeText = "Welcome to the support desk! We are here to help you with your concerns. How can we support you today?"
	// openCountPending stands in for the open-ticket count before the first refresh.
	openCountPending = -1
)

// Presenter renders ticket state into platform messages. It holds no state
// beyond configuration, so equal inputs always render equal output.
type Presenter struct {
	catalog  domain.Catalog
	settings domain.Settings
}

// NewPresenter constructs a presenter.
func NewPresenter(catalog domain.Catalog, settings domain.Settings) *Presenter {
	return &Presenter{catalog: catalog, settings: settings}
}

// Summary renders the ticket's status message.
func (p *Presenter) Summary(ticket *domain.Ticket, openCount int) platform.Message {
	count := "`Processing...`"
	if openCount != openCountPending {
		count = fmt.Sprintf("`%d`", openCount)
	}

	var desc strings.Builder
	desc.WriteString(welcomeText)
	desc.WriteString("\n\n**🕵️ | User**\n")
	desc.WriteString(platform.Mention(ticket.OwnerUserID))
	desc.WriteString("\n\n**👥 | Open tickets**\n")
	desc.WriteString(count)

	embed := platform.Embed{
		Title:       ticket.Name,
		Description: desc.String(),
		Color:       colorSummary,
		AuthorName:  ticket.OwnerDisplayName + " | Ticket",
		ImageURL:    p.settings.BannerURL,
		FooterText:  statusLabel(ticket.Status),
	}
	for _, q := range p.catalog[ticket.Category].Questions {
		answer, ok := ticket.Answers[q.Title]
		if !ok || strings.TrimSpace(answer) == "" {
			continue
		}
		embed.Fields = append(embed.Fields, platform.Field{
			Name:  strings.TrimSpace(q.Emoji + " " + q.Title),
			Value: answer,
		})
	}

	return platform.Message{
		Embeds:  []platform.Embed{embed},
		Buttons: summaryControls(ticket.Status),
	}
}

func summaryControls(status domain.TicketStatus) []platform.Button {
	if !status.Live() {
		return nil
	}
	return []platform.Button{
		{CustomID: ControlClose, Label: "Close", Style: platform.StyleDanger},
		{CustomID: ControlPanel, Label: "Control", Style: platform.StyleSecondary},
	}
}

func statusLabel(status domain.TicketStatus) string {
	switch status {
	case domain.TicketStatusCreated:
		return "Status: created"
	case domain.TicketStatusAwaitingAnswers:
		return "Status: waiting for answers"
	case domain.TicketStatusOpen:
		return "Status: open"
	case domain.TicketStatusCloseRequested:
		return "Status: close requested"
	default:
		return "Status: closed"
	}
}

// Panel renders the category picker posted by the panel command.
func (p *Presenter) Panel() platform.Message {
	options := make([]platform.SelectOption, 0, len(domain.Categories)+1)
	for _, c := range domain.Categories {
		spec := p.catalog[c]
		options = append(options, platform.SelectOption{
			Label:       spec.Label,
			Value:       string(c),
			Description: spec.Description,
			Emoji:       spec.Emoji,
		})
	}
	options = append(options, platform.SelectOption{
		Label:       "Cancel Selection",
		Value:       SelectCancelValue,
		Description: "Cancel the selection",
		Emoji:       "❌",
	})
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:      "Create your Ticket",
			Color:      colorPanel,
			ImageURL:   p.settings.BannerURL,
			FooterText: "Ticket System",
			Fields: []platform.Field{
				{Name: "🇺🇸 English", Value: "Select which type of ticket you would like to open in the drop-down menu!"},
			},
		}},
		Select: &platform.Select{
			CustomID:    ControlSelectCategory,
			Placeholder: "Select a ticket type",
			Options:     options,
		},
	}
}

// ControlPanel renders the staff-only management buttons.
func (p *Presenter) ControlPanel() platform.Message {
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       "Ticket Control Panel",
			Description: "Use the buttons below to manage this ticket.",
			Color:       colorControl,
		}},
		Buttons: []platform.Button{
			{CustomID: ControlRename, Label: "Rename", Style: platform.StylePrimary},
			{CustomID: ControlAddUser, Label: "Add User", Style: platform.StyleSuccess},
			{CustomID: ControlRemoveUser, Label: "Remove User", Style: platform.StyleDanger},
			{CustomID: ControlCloseRequest, Label: "Close Request", Style: platform.StyleDanger},
		},
	}
}

// CloseConfirmation renders the public prompt asking the owner to confirm closure.
func (p *Presenter) CloseConfirmation(ticket *domain.Ticket, token string) platform.Message {
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       "Confirm Ticket Closure",
			Description: platform.Mention(ticket.OwnerUserID) + " Is everything resolved? May this ticket be closed?",
			Color:       colorPanel,
		}},
		Buttons: []platform.Button{
			{CustomID: ControlConfirmClose + ":" + token, Label: "Close", Style: platform.StyleDanger},
			{CustomID: ControlCancelClose, Label: "Cancel", Style: platform.StyleSecondary},
		},
	}
}

// Question renders one intake prompt.
func (p *Presenter) Question(q domain.Question) platform.Message {
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       strings.TrimSpace(q.Emoji + " " + q.Title),
			Description: q.Prompt,
			Color:       colorSummary,
		}},
	}
}

// Notice renders a short confirmation embed.
func (p *Presenter) Notice(title, description string, ok bool) platform.Message {
	color := colorOK
	if !ok {
		color = colorRemoved
	}
	return platform.Message{Embeds: []platform.Embed{{Title: title, Description: description, Color: color}}}
}

// ClosureNotice renders the notice sent with a closed ticket's transcript.
func (p *Presenter) ClosureNotice(closed domain.ClosedTicket) platform.Message {
	t := closed.Ticket
	closer := closed.ClosedBy.DisplayName
	if closed.ClosedBy.UserID != "" {
		closer = platform.Mention(closed.ClosedBy.UserID)
	}
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:      "Ticket closed",
			Color:      colorNotice,
			AuthorName: t.OwnerDisplayName,
			Fields: []platform.Field{
				{Name: "Ticket name", Value: t.Name, Inline: true},
				{Name: "Opened by", Value: platform.Mention(t.OwnerUserID), Inline: true},
				{Name: "Created", Value: t.CreatedAt.UTC().Format(noticeTimeLayout), Inline: true},
				{Name: "Closed", Value: closed.ClosedAt.UTC().Format(noticeTimeLayout), Inline: true},
				{Name: "Closed by", Value: closer, Inline: true},
			},
		}},
	}
}

const noticeTimeLayout = "2006-01-02 15:04 MST"
