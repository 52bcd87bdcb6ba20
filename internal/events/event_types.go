package events

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketRenamed       EventType = "ticket_renamed"
	EventAnswerRecorded      EventType = "ticket_answer_recorded"
	EventParticipantChanged  EventType = "ticket_participant_changed"
	EventTicketClosed        EventType = "ticket_closed"
)

// Actor is the platform user behind an event. Empty UserID means the bot itself.
type Actor struct {
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Event represents a lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category        domain.Category `json:"category"`
	CategoryGroupID string          `json:"category_group_id"`
	Name            string          `json:"name"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketRenamedPayload payload.
type TicketRenamedPayload struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// AnswerRecordedPayload payload.
type AnswerRecordedPayload struct {
	Question string `json:"question"`
	Preview  string `json:"preview"`
}

// ParticipantChangedPayload payload.
type ParticipantChangedPayload struct {
	UserID string `json:"user_id"`
	Added  bool   `json:"added"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
}
