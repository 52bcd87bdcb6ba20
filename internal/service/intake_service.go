package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

const (
	timeoutNotice = "Time ran out. Please start the process again."
	failureNotice = "Your answer could not be saved. Please start the process again."
)

// AnswerSink receives what the intake collects.
type AnswerSink interface {
	RecordAnswer(ctx context.Context, ticketID, title, answer string) error
	// CompleteIntake ends the intake; complete is false when it was aborted.
	CompleteIntake(ctx context.Context, ticketID string, complete bool) error
}

// IntakeJob is one ticket's scripted question pass.
type IntakeJob struct {
	TicketID    string
	ChannelID   string
	OwnerUserID string
	Questions   []domain.Question
}

type waiter struct {
	owner string
	reply chan platform.IncomingMessage
}

// IntakeCollector asks the category questions and captures the owner's replies.
// Inbound channel messages reach it through Deliver.
type IntakeCollector struct {
	platform  platform.Client
	presenter *Presenter
	timeout   time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	waiters map[string]*waiter
}

// NewIntakeCollector constructs a collector that waits at most timeout per question.
func NewIntakeCollector(client platform.Client, presenter *Presenter, timeout time.Duration, logger *zap.Logger) *IntakeCollector {
	return &IntakeCollector{
		platform:  client,
		presenter: presenter,
		timeout:   timeout,
		logger:    logger,
		waiters:   make(map[string]*waiter),
	}
}

// Deliver hands msg to the intake waiting in its channel. It reports whether
// the message was consumed; only the owner's first reply per question is.
func (c *IntakeCollector) Deliver(msg platform.IncomingMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.waiters[msg.ChannelID]
	if !ok || w.owner != msg.AuthorID {
		return false
	}
	delete(c.waiters, msg.ChannelID)
	w.reply <- msg
	return true
}

// Waiting reports whether an intake currently waits in the channel.
func (c *IntakeCollector) Waiting(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.waiters[channelID]
	return ok
}

// Run performs the ordered question pass. It returns domain.ErrIntakeTimeout
// when a question went unanswered; answers recorded so far are kept.
func (c *IntakeCollector) Run(ctx context.Context, job IntakeJob, sink AnswerSink) error {
	for _, q := range job.Questions {
		promptID, err := c.platform.SendMessage(ctx, job.ChannelID, c.presenter.Question(q))
		if err != nil {
			c.logger.Warn("intake prompt could not be posted",
				zap.String("ticket_id", job.TicketID), zap.String("question", q.Title), zap.Error(err))
			_ = sink.CompleteIntake(ctx, job.TicketID, false)
			return err
		}

		reply, err := c.await(ctx, job)
		if errors.Is(err, domain.ErrIntakeTimeout) {
			c.discard(ctx, job.ChannelID, promptID)
			c.notify(ctx, job, timeoutNotice)
			if cerr := sink.CompleteIntake(ctx, job.TicketID, false); cerr != nil {
				c.logger.Warn("intake abort not recorded", zap.String("ticket_id", job.TicketID), zap.Error(cerr))
			}
			return err
		}
		if err != nil {
			return err
		}

		c.discard(ctx, job.ChannelID, promptID)
		c.discard(ctx, job.ChannelID, reply.MessageID)

		if err := sink.RecordAnswer(ctx, job.TicketID, q.Title, reply.Content); err != nil {
			if stoppedUnderneath(ctx, err) {
				c.logger.Info("intake stopped", zap.String("ticket_id", job.TicketID), zap.Error(err))
				return err
			}
			c.logger.Warn("intake answer not recorded",
				zap.String("ticket_id", job.TicketID), zap.String("question", q.Title), zap.Error(err))
			c.notify(ctx, job, failureNotice)
			if cerr := sink.CompleteIntake(ctx, job.TicketID, false); cerr != nil {
				c.logger.Warn("intake abort not recorded", zap.String("ticket_id", job.TicketID), zap.Error(cerr))
			}
			return err
		}
	}
	return sink.CompleteIntake(ctx, job.TicketID, true)
}

func (c *IntakeCollector) await(ctx context.Context, job IntakeJob) (platform.IncomingMessage, error) {
	w := &waiter{owner: job.OwnerUserID, reply: make(chan platform.IncomingMessage, 1)}
	c.mu.Lock()
	c.waiters[job.ChannelID] = w
	c.mu.Unlock()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case msg := <-w.reply:
		return msg, nil
	case <-ctx.Done():
		c.release(job.ChannelID, w)
		return platform.IncomingMessage{}, ctx.Err()
	case <-timer.C:
		c.release(job.ChannelID, w)
		// A reply may have been handed over while the timer fired.
		select {
		case msg := <-w.reply:
			return msg, nil
		default:
			return platform.IncomingMessage{}, domain.ErrIntakeTimeout
		}
	}
}

func (c *IntakeCollector) release(channelID string, w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiters[channelID] == w {
		delete(c.waiters, channelID)
	}
}

func (c *IntakeCollector) discard(ctx context.Context, channelID, messageID string) {
	if messageID == "" {
		return
	}
	if err := c.platform.DeleteMessage(ctx, channelID, messageID); err != nil && !platform.IsNotFound(err) {
		c.logger.Warn("intake message not removed",
			zap.String("channel_id", channelID), zap.String("message_id", messageID), zap.Error(err))
	}
}

func (c *IntakeCollector) notify(ctx context.Context, job IntakeJob, text string) {
	msg := c.presenter.Notice("Intake cancelled", platform.Mention(job.OwnerUserID)+" "+text, false)
	msg.Content = platform.Mention(job.OwnerUserID)
	if _, err := c.platform.SendMessage(ctx, job.ChannelID, msg); err != nil {
		c.logger.Warn("intake notice not delivered", zap.String("ticket_id", job.TicketID), zap.Error(err))
	}
}

// stoppedUnderneath reports whether the ticket was closed, removed or moved
// out of intake while a reply was pending. Nothing is left to clean up then.
func stoppedUnderneath(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, domain.ErrTicketNotFound) ||
		apperrors.IsCode(err, apperrors.CodeNotFound) ||
		apperrors.IsCode(err, apperrors.CodeConflict)
}
