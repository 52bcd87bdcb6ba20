// Package platformtest provides an in-memory chat platform for tests.
package platformtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Channel is the fake's view of one channel.
type Channel struct {
	ID       string
	Name     string
	ParentID string
	Access   map[string]bool
	Messages []platform.PostedMessage
	Posted   []platform.Message
}

// Fake implements platform.Client in memory. Failure hooks return the given
// error for the matching call.
type Fake struct {
	mu       sync.Mutex
	node     *snowflake.Node
	now      func() time.Time
	BotID    string
	channels map[string]*Channel
	members  map[string]platform.Member
	messages map[string]platform.Message
	directs  map[string][]platform.Message

	FailCreateChannel error
	FailDirect        error
	FailSendTo        map[string]error
	FailDeleteChannel error
}

// NewFake creates an empty platform.
func NewFake() *Fake {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return &Fake{
		node:       node,
		now:        time.Now,
		BotID:      "bot",
		channels:   map[string]*Channel{},
		members:    map[string]platform.Member{},
		messages:   map[string]platform.Message{},
		directs:    map[string][]platform.Message{},
		FailSendTo: map[string]error{},
	}
}

// NewID mints a snowflake id.
func (f *Fake) NewID() string {
	return f.node.Generate().String()
}

// AddMember registers a resolvable member.
func (f *Fake) AddMember(m platform.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[m.UserID] = m
}

// AddChannel registers a pre-existing channel, e.g. the archive destination.
func (f *Fake) AddChannel(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[id] = &Channel{ID: id, Name: name, Access: map[string]bool{}}
}

// PostUserMessage appends a user-authored message to a channel and returns it
// in the shape intake consumes.
func (f *Fake) PostUserMessage(channelID, authorID, content string) platform.IncomingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.NewID()
	if ch, ok := f.channels[channelID]; ok {
		ch.Messages = append(ch.Messages, platform.PostedMessage{
			ID:        id,
			ChannelID: channelID,
			AuthorID:  authorID,
			Content:   content,
			Timestamp: f.now(),
		})
	}
	return platform.IncomingMessage{ChannelID: channelID, MessageID: id, AuthorID: authorID, Content: content}
}

// Channel returns a snapshot of a channel, or nil.
func (f *Fake) Channel(id string) *Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return nil
	}
	cp := *ch
	cp.Access = map[string]bool{}
	for k, v := range ch.Access {
		cp.Access[k] = v
	}
	cp.Messages = append([]platform.PostedMessage(nil), ch.Messages...)
	cp.Posted = append([]platform.Message(nil), ch.Posted...)
	return &cp
}

// Message returns the latest content of a bot message.
func (f *Fake) Message(id string) (platform.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	return m, ok
}

// Directs returns direct messages sent to a user.
func (f *Fake) Directs(userID string) []platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Message(nil), f.directs[userID]...)
}

// ChannelIDs lists existing channel ids.
func (f *Fake) ChannelIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.channels))
	for id := range f.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *Fake) CreateChannel(_ context.Context, spec platform.ChannelSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreateChannel != nil {
		return "", f.FailCreateChannel
	}
	id := f.NewID()
	f.channels[id] = &Channel{ID: id, Name: spec.Name, ParentID: spec.ParentID, Access: map[string]bool{}}
	return id, nil
}

func (f *Fake) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDeleteChannel != nil {
		return f.FailDeleteChannel
	}
	if _, ok := f.channels[channelID]; !ok {
		return notFound("delete channel")
	}
	delete(f.channels, channelID)
	return nil
}

func (f *Fake) RenameChannel(_ context.Context, channelID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return notFound("rename channel")
	}
	ch.Name = name
	return nil
}

func (f *Fake) SendMessage(_ context.Context, channelID string, msg platform.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailSendTo[channelID]; err != nil {
		return "", err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return "", notFound("send message")
	}
	id := f.NewID()
	ch.Posted = append(ch.Posted, msg)
	ch.Messages = append(ch.Messages, platform.PostedMessage{
		ID:        id,
		ChannelID: channelID,
		AuthorID:  f.BotID,
		AuthorBot: true,
		Content:   msg.Content,
		Embeds:    msg.Embeds,
		Timestamp: f.now(),
	})
	f.messages[id] = msg
	return id, nil
}

func (f *Fake) EditMessage(_ context.Context, channelID, messageID string, msg platform.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return notFound("edit message")
	}
	if _, ok := f.messages[messageID]; !ok {
		return notFound("edit message")
	}
	f.messages[messageID] = msg
	return nil
}

func (f *Fake) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return notFound("delete message")
	}
	for i, m := range ch.Messages {
		if m.ID == messageID {
			ch.Messages = append(ch.Messages[:i], ch.Messages[i+1:]...)
			delete(f.messages, messageID)
			return nil
		}
	}
	return notFound("delete message")
}

// DropMessage forgets a bot message, simulating a summary deleted by hand.
func (f *Fake) DropMessage(messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, messageID)
}

func (f *Fake) FetchMessage(_ context.Context, channelID, messageID string) (*platform.PostedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, notFound("fetch message")
	}
	for _, m := range ch.Messages {
		if m.ID == messageID {
			cp := m
			return &cp, nil
		}
	}
	return nil, notFound("fetch message")
}

func (f *Fake) ChannelMessages(_ context.Context, channelID string) ([]platform.PostedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, notFound("channel messages")
	}
	return append([]platform.PostedMessage(nil), ch.Messages...), nil
}

func (f *Fake) GrantAccess(_ context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return notFound("grant access")
	}
	ch.Access[userID] = true
	return nil
}

func (f *Fake) RevokeAccess(_ context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return notFound("revoke access")
	}
	delete(ch.Access, userID)
	return nil
}

func (f *Fake) FetchMember(_ context.Context, userID string) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return nil, notFound("fetch member")
	}
	return &m, nil
}

func (f *Fake) SendDirect(_ context.Context, userID string, msg platform.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDirect != nil {
		return f.FailDirect
	}
	f.directs[userID] = append(f.directs[userID], msg)
	return nil
}

func notFound(op string) error {
	return platform.NewError(platform.KindNotFound, op, errors.New("unknown id"))
}

// Responder records interaction responses.
type Responder struct {
	mu                sync.Mutex
	Deferred          bool
	DeferredEphemeral bool
	Responses         []platform.Response
	Fail              error
	// Calls lists "defer" and "respond" in the order they arrived.
	Calls []string
}

func (r *Responder) Defer(_ context.Context, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deferred = true
	r.DeferredEphemeral = ephemeral
	r.Calls = append(r.Calls, "defer")
	return nil
}

func (r *Responder) Respond(_ context.Context, resp platform.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "respond")
	if r.Fail != nil {
		return r.Fail
	}
	r.Responses = append(r.Responses, resp)
	return nil
}

// Last returns the most recent response.
func (r *Responder) Last() platform.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Responses) == 0 {
		return platform.Response{}
	}
	return r.Responses[len(r.Responses)-1]
}

// Count returns how many responses were delivered.
func (r *Responder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Responses)
}
