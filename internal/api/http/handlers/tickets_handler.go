package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/dto"
	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// TicketReader is the part of the lifecycle the operator API uses.
type TicketReader interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	Get(ctx context.Context, ticketID string) (*domain.Ticket, error)
	Refresh(ctx context.Context, ticketID string) error
}

// HistoryReader serves a ticket's audit trail.
type HistoryReader interface {
	TicketHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

// TicketsHandler manages operator ticket endpoints.
type TicketsHandler struct {
	tickets TicketReader
	history HistoryReader
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketReader, history HistoryReader) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, history: history}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for _, t := range tickets {
		if query.Matches(t) {
			items = append(items, dto.NewTicketSummary(t))
		}
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(*ticket)})
}

// GetHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	id := c.Params("id")
	entries, err := h.history.TicketHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		if _, err := h.tickets.Get(c.UserContext(), id); err != nil {
			return err
		}
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.NewHistoryEntry(e))
	}
	return c.JSON(fiber.Map{"data": items})
}

// RefreshTicket POST /tickets/:id/refresh.
func (h *TicketsHandler) RefreshTicket(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.tickets.Refresh(c.UserContext(), id); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"id": id, "refreshed": true}})
}

func parseTicketQuery(c *fiber.Ctx) (dto.TicketListQuery, error) {
	q := dto.TicketListQuery{
		Status: domain.TicketStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Owner:  strings.TrimSpace(c.Query("owner")),
	}
	if raw := c.Query("category"); raw != "" {
		cat, ok := domain.ParseCategory(raw)
		if !ok {
			return q, apperrors.NewValidationError("unknown category", domain.ErrInvalidCategory,
				map[string]any{"category": raw})
		}
		q.Category = cat
	}
	if q.Status != "" && !q.Status.Live() {
		return q, apperrors.NewValidationError("unknown status", nil, map[string]any{"status": string(q.Status)})
	}
	return q, nil
}
