package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusCreated         TicketStatus = "CREATED"
	TicketStatusAwaitingAnswers TicketStatus = "AWAITING_ANSWERS"
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusCloseRequested  TicketStatus = "CLOSE_REQUESTED"
	TicketStatusClosed          TicketStatus = "CLOSED"
)

// Live reports whether the ticket may still be mutated.
func (s TicketStatus) Live() bool {
	switch s {
	case TicketStatusCreated, TicketStatusAwaitingAnswers, TicketStatusOpen, TicketStatusCloseRequested:
		return true
	default:
		return false
	}
}

// Ticket is one open support conversation, keyed by its channel id.
type Ticket struct {
	ID               string            `json:"id"`
	OwnerUserID      string            `json:"owner_user_id"`
	OwnerDisplayName string            `json:"owner_display_name"`
	Category         Category          `json:"category"`
	CategoryGroupID  string            `json:"category_group_id"`
	Name             string            `json:"name"`
	SummaryMessageID string            `json:"summary_message_id"`
	Answers          map[string]string `json:"answers"`
	Status           TicketStatus      `json:"status"`
	CloseToken       string            `json:"close_token,omitempty"`
	CloseRequestedBy string            `json:"close_requested_by,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so callers never share the answers map with the store.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	if t.Answers != nil {
		out.Answers = make(map[string]string, len(t.Answers))
		for k, v := range t.Answers {
			out.Answers[k] = v
		}
	}
	return &out
}

// ClosedTicket is what remains of a ticket after confirmClose removed it.
type ClosedTicket struct {
	Ticket   Ticket
	ClosedBy Actor
	ClosedAt time.Time
	Archived bool
}

// Actor identifies the platform user performing an action.
type Actor struct {
	UserID      string
	DisplayName string
	RoleIDs     []string
}

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, id := range a.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}
