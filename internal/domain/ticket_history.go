package domain

import "time"

// ChangeType captures what changed in a history entry.
type ChangeType string

const (
	ChangeTypeCreated            ChangeType = "CREATED"
	ChangeTypeStatusChange       ChangeType = "STATUS_CHANGE"
	ChangeTypeRename             ChangeType = "RENAME"
	ChangeTypeAnswerRecorded     ChangeType = "ANSWER_RECORDED"
	ChangeTypeParticipantAdded   ChangeType = "PARTICIPANT_ADDED"
	ChangeTypeParticipantRemoved ChangeType = "PARTICIPANT_REMOVED"
	ChangeTypeClosed             ChangeType = "CLOSED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	TicketID   string     `json:"ticket_id"`
	ChangedBy  string     `json:"changed_by,omitempty"`
	ChangeType ChangeType `json:"change_type"`
	OldValue   string     `json:"old_value,omitempty"`
	NewValue   string     `json:"new_value,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
