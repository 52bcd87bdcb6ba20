package dto

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// TicketListQuery captures query filters for the listing endpoint.
type TicketListQuery struct {
	Status   domain.TicketStatus
	Owner    string
	Category domain.Category
}

// Matches reports whether the ticket passes every set filter.
func (q TicketListQuery) Matches(t domain.Ticket) bool {
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	if q.Owner != "" && t.OwnerUserID != q.Owner {
		return false
	}
	if q.Category != "" && t.Category != q.Category {
		return false
	}
	return true
}

// TicketSummary response.
type TicketSummary struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	OwnerUserID      string              `json:"owner_user_id"`
	OwnerDisplayName string              `json:"owner_display_name"`
	Category         domain.Category     `json:"category"`
	CategoryGroupID  string              `json:"category_group_id"`
	Status           domain.TicketStatus `json:"status"`
	Answered         int                 `json:"answered"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	SummaryMessageID string            `json:"summary_message_id"`
	Answers          map[string]string `json:"answers"`
	CloseRequestedBy string            `json:"close_requested_by,omitempty"`
}

// HistoryEntryResponse is one audit trail row.
type HistoryEntryResponse struct {
	ChangeType domain.ChangeType `json:"change_type"`
	ChangedBy  string            `json:"changed_by,omitempty"`
	OldValue   string            `json:"old_value,omitempty"`
	NewValue   string            `json:"new_value,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewTicketSummary maps a ticket to its listing row.
func NewTicketSummary(t domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:               t.ID,
		Name:             t.Name,
		OwnerUserID:      t.OwnerUserID,
		OwnerDisplayName: t.OwnerDisplayName,
		Category:         t.Category,
		CategoryGroupID:  t.CategoryGroupID,
		Status:           t.Status,
		Answered:         len(t.Answers),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// NewTicketDetail maps a ticket to the detail response.
func NewTicketDetail(t domain.Ticket) TicketDetailResponse {
	answers := t.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	return TicketDetailResponse{
		TicketSummary:    NewTicketSummary(t),
		SummaryMessageID: t.SummaryMessageID,
		Answers:          answers,
		CloseRequestedBy: t.CloseRequestedBy,
	}
}

// NewHistoryEntry maps an audit entry.
func NewHistoryEntry(h domain.TicketHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		ChangeType: h.ChangeType,
		ChangedBy:  h.ChangedBy,
		OldValue:   h.OldValue,
		NewValue:   h.NewValue,
		CreatedAt:  h.CreatedAt,
	}
}
