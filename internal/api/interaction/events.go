// Package interaction routes inbound platform interactions to the ticket
// lifecycle and guarantees each one is answered exactly once.
package interaction

import "github.com/spec-kit/ticket-bot/internal/domain"

// Interaction carries what every inbound event has in common.
type Interaction struct {
	ID        string
	Actor     domain.Actor
	ChannelID string
	// MessageID is the message a component was attached to, if any.
	MessageID string
}

// CommandEvent is a slash command invocation.
type CommandEvent struct {
	Interaction
	Name string
}

// MenuEvent is a select menu choice.
type MenuEvent struct {
	Interaction
	CustomID string
	Values   []string
}

// ButtonEvent is a button press.
type ButtonEvent struct {
	Interaction
	CustomID string
}

// FormEvent is a submitted form.
type FormEvent struct {
	Interaction
	CustomID string
	Fields   map[string]string
}

// Kind names the event kinds for logs and metrics.
type Kind string

const (
	KindCommand Kind = "command"
	KindMenu    Kind = "menu"
	KindButton  Kind = "button"
	KindForm    Kind = "form"
)
