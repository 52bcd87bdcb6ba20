package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// CommandPanel posts the category picker.
const CommandPanel = "ticketembed"

const (
	unexpectedErrorText = "An unexpected error occurred."
	retryText           = "The chat platform did not respond. Please try again."
)

// Lifecycle is the part of the ticket engine the router drives.
type Lifecycle interface {
	SelectCategory(ctx context.Context, actor domain.Actor, value string) (*domain.Ticket, error)
	Rename(ctx context.Context, ticketID string, actor domain.Actor, newName string) (*domain.Ticket, error)
	RequestClose(ctx context.Context, ticketID string, actor domain.Actor) (string, error)
	CancelClose(ctx context.Context, ticketID string, actor domain.Actor) error
	ConfirmClose(ctx context.Context, ticketID string, actor domain.Actor, token string) (*domain.ClosedTicket, error)
	AddParticipant(ctx context.Context, ticketID string, actor domain.Actor, userID string) (*platform.Member, error)
	RemoveParticipant(ctx context.Context, ticketID string, actor domain.Actor, userID string) (*platform.Member, error)
	Get(ctx context.Context, ticketID string) (*domain.Ticket, error)
	IsStaff(actor domain.Actor) bool
}

// Intake consumes channel messages while a ticket collects answers.
type Intake interface {
	Deliver(msg platform.IncomingMessage) bool
}

// Router exposes one entry point per interaction kind.
type Router struct {
	lifecycle Lifecycle
	intake    Intake
	presenter *service.Presenter
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewRouter constructs a router.
func NewRouter(lifecycle Lifecycle, intake Intake, presenter *service.Presenter, metrics *observability.Metrics, logger *zap.Logger) *Router {
	return &Router{
		lifecycle: lifecycle,
		intake:    intake,
		presenter: presenter,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleMessage feeds a user message to a waiting intake.
func (r *Router) HandleMessage(msg platform.IncomingMessage) bool {
	if r.intake == nil {
		return false
	}
	return r.intake.Deliver(msg)
}

// HandleCommand answers a slash command.
func (r *Router) HandleCommand(ctx context.Context, ev CommandEvent, resp platform.Responder) {
	r.dispatch(ctx, KindCommand, ev.Name, ev.Interaction, resp, func(ctx context.Context, out *onceResponder) error {
		switch ev.Name {
		case CommandPanel:
			return out.Respond(ctx, platform.Response{Message: r.presenter.Panel()})
		default:
			return apperrors.NewValidationError("unknown command", nil, map[string]any{"command": ev.Name})
		}
	})
}

// HandleMenu answers a select menu choice.
func (r *Router) HandleMenu(ctx context.Context, ev MenuEvent, resp platform.Responder) {
	r.dispatch(ctx, KindMenu, ev.CustomID, ev.Interaction, resp, func(ctx context.Context, out *onceResponder) error {
		if ev.CustomID != service.ControlSelectCategory {
			return apperrors.NewValidationError("unknown menu", nil, nil)
		}
		if len(ev.Values) == 0 {
			return apperrors.NewValidationError("no category selected", domain.ErrInvalidCategory, nil)
		}
		if ev.Values[0] == service.SelectCancelValue {
			return out.Respond(ctx, ephemeral(r.presenter.Notice("Selection cancelled", "No ticket was opened.", false)))
		}

		if err := out.Defer(ctx, true); err != nil {
			return err
		}
		ticket, err := r.lifecycle.SelectCategory(ctx, ev.Actor, ev.Values[0])
		if err != nil {
			return err
		}
		return out.Respond(ctx, ephemeral(r.presenter.Notice("Ticket created",
			"Your ticket is ready: "+platform.ChannelMention(ticket.ID), true)))
	})
}

// HandleButton answers a button press.
func (r *Router) HandleButton(ctx context.Context, ev ButtonEvent, resp platform.Responder) {
	r.dispatch(ctx, KindButton, ev.CustomID, ev.Interaction, resp, func(ctx context.Context, out *onceResponder) error {
		ticketID := ev.ChannelID
		switch id := ev.CustomID; {
		case id == service.ControlClose:
			return r.closeTicket(ctx, out, ev.Interaction, "")

		case strings.HasPrefix(id, service.ControlConfirmClose+":"):
			return r.closeTicket(ctx, out, ev.Interaction, strings.TrimPrefix(id, service.ControlConfirmClose+":"))

		case id == service.ControlCancelClose:
			if err := out.Defer(ctx, true); err != nil {
				return err
			}
			if err := r.lifecycle.CancelClose(ctx, ticketID, ev.Actor); err != nil {
				return err
			}
			return out.Respond(ctx, platform.Response{Dismiss: true})

		case id == service.ControlPanel:
			if err := r.requireStaff(ev.Actor); err != nil {
				return err
			}
			return out.Respond(ctx, ephemeral(r.presenter.ControlPanel()))

		case id == service.ControlRename:
			return r.openForm(ctx, out, ev.Actor, &platform.Form{
				CustomID: service.FormRename,
				Title:    "Rename ticket",
				Inputs:   []platform.TextInput{{CustomID: service.FieldNewName, Label: "New ticket name", Required: true}},
			})

		case id == service.ControlAddUser:
			return r.openForm(ctx, out, ev.Actor, &platform.Form{
				CustomID: service.FormAddUser,
				Title:    "Add user",
				Inputs:   []platform.TextInput{{CustomID: service.FieldAddUserID, Label: "User ID", Required: true}},
			})

		case id == service.ControlRemoveUser:
			return r.openForm(ctx, out, ev.Actor, &platform.Form{
				CustomID: service.FormRemoveUser,
				Title:    "Remove user",
				Inputs:   []platform.TextInput{{CustomID: service.FieldRemoveUserID, Label: "User ID", Required: true}},
			})

		case id == service.ControlCloseRequest:
			if err := out.Defer(ctx, false); err != nil {
				return err
			}
			token, err := r.lifecycle.RequestClose(ctx, ticketID, ev.Actor)
			if err != nil {
				return err
			}
			ticket, err := r.lifecycle.Get(ctx, ticketID)
			if err != nil {
				return err
			}
			return out.Respond(ctx, platform.Response{Message: r.presenter.CloseConfirmation(ticket, token)})

		default:
			return apperrors.NewValidationError("unknown control", nil, map[string]any{"custom_id": id})
		}
	})
}

// HandleForm answers a submitted form.
func (r *Router) HandleForm(ctx context.Context, ev FormEvent, resp platform.Responder) {
	r.dispatch(ctx, KindForm, ev.CustomID, ev.Interaction, resp, func(ctx context.Context, out *onceResponder) error {
		ticketID := ev.ChannelID
		switch ev.CustomID {
		case service.FormRename:
			if err := out.Defer(ctx, true); err != nil {
				return err
			}
			ticket, err := r.lifecycle.Rename(ctx, ticketID, ev.Actor, ev.Fields[service.FieldNewName])
			if err != nil {
				return err
			}
			return out.Respond(ctx, ephemeral(r.presenter.Notice("Ticket renamed",
				fmt.Sprintf("The ticket is now called **%s**.", ticket.Name), true)))

		case service.FormAddUser:
			if err := out.Defer(ctx, false); err != nil {
				return err
			}
			member, err := r.lifecycle.AddParticipant(ctx, ticketID, ev.Actor, ev.Fields[service.FieldAddUserID])
			if err != nil {
				return err
			}
			return out.Respond(ctx, platform.Response{Message: r.presenter.Notice("User added",
				platform.Mention(member.UserID)+" was added to the ticket.", true)})

		case service.FormRemoveUser:
			if err := out.Defer(ctx, false); err != nil {
				return err
			}
			member, err := r.lifecycle.RemoveParticipant(ctx, ticketID, ev.Actor, ev.Fields[service.FieldRemoveUserID])
			if err != nil {
				return err
			}
			return out.Respond(ctx, platform.Response{Message: r.presenter.Notice("User removed",
				platform.Mention(member.UserID)+" was removed from the ticket.", false)})

		default:
			return apperrors.NewValidationError("unknown form", nil, map[string]any{"custom_id": ev.CustomID})
		}
	})
}

func (r *Router) closeTicket(ctx context.Context, out *onceResponder, in Interaction, token string) error {
	if err := out.Defer(ctx, true); err != nil {
		return err
	}
	closed, err := r.lifecycle.ConfirmClose(ctx, in.ChannelID, in.Actor, token)
	if err != nil {
		return err
	}
	// The channel is gone by now; the platform may reject the follow-up.
	if err := out.Respond(ctx, ephemeral(r.presenter.Notice("Ticket closed",
		fmt.Sprintf("**%s** was closed.", closed.Ticket.Name), true))); err != nil {
		r.logger.Debug("close acknowledgement not delivered", zap.String("ticket_id", in.ChannelID), zap.Error(err))
	}
	return nil
}

func (r *Router) openForm(ctx context.Context, out *onceResponder, actor domain.Actor, form *platform.Form) error {
	if err := r.requireStaff(actor); err != nil {
		return err
	}
	return out.Respond(ctx, platform.Response{Form: form})
}

func (r *Router) requireStaff(actor domain.Actor) error {
	if r.lifecycle.IsStaff(actor) {
		return nil
	}
	return apperrors.NewForbidden("only the support team may use this")
}

// dispatch runs fn and makes sure the interaction ends with exactly one
// response, whatever fn did.
func (r *Router) dispatch(ctx context.Context, kind Kind, name string, in Interaction, resp platform.Responder, fn func(context.Context, *onceResponder) error) {
	out := &onceResponder{inner: resp}
	logger := r.logger.With(
		zap.String("interaction_kind", string(kind)),
		zap.String("interaction", name),
		zap.String("user_id", in.Actor.UserID),
		zap.String("channel_id", in.ChannelID))

	defer func() {
		if p := recover(); p != nil {
			logger.Error("interaction handler panicked", zap.Any("panic", p), zap.Stack("stack"))
			r.metrics.RecordError("interaction_"+string(kind), apperrors.CodeInternal)
			r.fallback(ctx, out, logger, unexpectedErrorText)
		}
	}()

	err := fn(ctx, out)
	switch {
	case err == nil:
		r.metrics.RecordOperation("interaction_"+string(kind), "ok")
		if !out.done() {
			logger.Error("interaction handler returned without a response")
			r.fallback(ctx, out, logger, unexpectedErrorText)
		}
	case errors.Is(err, errAlreadyResponded):
		logger.Warn("interaction handler tried to respond twice")
	default:
		r.replyError(ctx, out, logger, kind, err)
	}
}

func (r *Router) replyError(ctx context.Context, out *onceResponder, logger *zap.Logger, kind Kind, err error) {
	de := apperrors.ToDomainError(err)
	r.metrics.RecordError("interaction_"+string(kind), de.Code)

	text := de.Message
	switch de.Code {
	case apperrors.CodeTransient:
		logger.Warn("interaction failed on the platform", zap.Error(err))
		text = retryText
	case apperrors.CodePersistence, apperrors.CodeInternal:
		logger.Error("interaction failed", zap.Error(err))
		text = unexpectedErrorText
	default:
		logger.Info("interaction rejected", zap.String("code", de.Code), zap.Error(err))
	}
	if out.done() {
		return
	}
	r.fallback(ctx, out, logger, text)
}

func (r *Router) fallback(ctx context.Context, out *onceResponder, logger *zap.Logger, text string) {
	if out.done() {
		return
	}
	if err := out.Respond(ctx, ephemeral(r.presenter.Notice("Error", text, false))); err != nil {
		logger.Warn("error response not delivered", zap.Error(err))
	}
}

func ephemeral(msg platform.Message) platform.Response {
	return platform.Response{Message: msg, Ephemeral: true}
}
