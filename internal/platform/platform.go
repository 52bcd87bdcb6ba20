// Package platform describes the chat platform the ticket lifecycle runs on.
// Only the calls the lifecycle needs are modelled; drawing and transport live
// in the adapters.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client is the chat platform as seen by the ticket services.
type Client interface {
	CreateChannel(ctx context.Context, spec ChannelSpec) (channelID string, err error)
	DeleteChannel(ctx context.Context, channelID string) error
	RenameChannel(ctx context.Context, channelID, name string) error
	SendMessage(ctx context.Context, channelID string, msg Message) (messageID string, err error)
	EditMessage(ctx context.Context, channelID, messageID string, msg Message) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	FetchMessage(ctx context.Context, channelID, messageID string) (*PostedMessage, error)
	// ChannelMessages returns the channel history, oldest first.
	ChannelMessages(ctx context.Context, channelID string) ([]PostedMessage, error)
	GrantAccess(ctx context.Context, channelID, userID string) error
	RevokeAccess(ctx context.Context, channelID, userID string) error
	FetchMember(ctx context.Context, userID string) (*Member, error)
	SendDirect(ctx context.Context, userID string, msg Message) error
}

// ChannelSpec describes a ticket channel to create under a category group.
type ChannelSpec struct {
	Name     string
	ParentID string
}

// ButtonStyle mirrors the usual button palette.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota + 1
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Button is an action control attached to a message.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
}

// Field is one name/value row of an embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message block.
type Embed struct {
	Title         string
	Description   string
	Color         int
	AuthorName    string
	AuthorIconURL string
	ImageURL      string
	FooterText    string
	Fields        []Field
}

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// Select is a single-choice dropdown.
type Select struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// File is an attachment uploaded with a message.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is an outbound message.
type Message struct {
	Content string
	Embeds  []Embed
	Buttons []Button
	Select  *Select
	Files   []File
}

// PostedMessage is a message read back from a channel.
type PostedMessage struct {
	ID          string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	AuthorBot   bool
	Content     string
	Embeds      []Embed
	Attachments []string
	Timestamp   time.Time
}

// IncomingMessage is a freshly posted user message, fed to intake.
type IncomingMessage struct {
	ChannelID string
	MessageID string
	AuthorID  string
	Content   string
}

// Member is a resolved server member.
type Member struct {
	UserID      string
	DisplayName string
	AvatarURL   string
	RoleIDs     []string
}

// TextInput is one field of a form.
type TextInput struct {
	CustomID string
	Label    string
	Required bool
}

// Form is a modal dialog shown in response to an interaction.
type Form struct {
	CustomID string
	Title    string
	Inputs   []TextInput
}

// Response answers an inbound interaction. Exactly one of Message, Form or
// Dismiss is meaningful.
type Response struct {
	Message   Message
	Ephemeral bool
	Form      *Form
	// Dismiss removes the message the interaction originated from.
	Dismiss bool
}

// Responder delivers the single response an interaction allows.
type Responder interface {
	// Defer acknowledges the interaction without content so slow work can
	// finish; the following Respond completes it.
	Defer(ctx context.Context, ephemeral bool) error
	Respond(ctx context.Context, resp Response) error
}

// Kind classifies platform failures.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindTransient        Kind = "transient"
)

// Error is returned by Client implementations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind lets pkg/util classify the failure without importing this package.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// NewError builds a classified platform error.
func NewError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err is a platform error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

// IsNotFound is shorthand for IsKind(err, KindNotFound).
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// Mention renders a user mention.
func Mention(userID string) string { return "<@" + userID + ">" }

// ChannelMention renders a channel link.
func ChannelMention(channelID string) string { return "<#" + channelID + ">" }
