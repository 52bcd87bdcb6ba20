package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

const defaultAuditDepth = 100

// AuditService records lifecycle events as a per-ticket history and logs them.
// Recent entries are kept in memory; with a repository attached every entry
// is also persisted and reads go to the repository.
type AuditService struct {
	dispatcher events.Dispatcher
	repo       repository.TicketHistoryRepository
	logger     *zap.Logger
	depth      int

	mu      sync.RWMutex
	entries map[string][]domain.TicketHistory
}

// NewAuditService creates the service. depth bounds the history kept per ticket.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, depth int) *AuditService {
	if depth <= 0 {
		depth = defaultAuditDepth
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		depth:      depth,
		entries:    make(map[string][]domain.TicketHistory),
	}
}

// PersistTo attaches durable storage. Call before RegisterHandlers.
func (a *AuditService) PersistTo(repo repository.TicketHistoryRepository) {
	a.repo = repo
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handleStatusChanged)
	a.dispatcher.Subscribe(events.EventTicketRenamed, a.handleRenamed)
	a.dispatcher.Subscribe(events.EventAnswerRecorded, a.handleAnswerRecorded)
	a.dispatcher.Subscribe(events.EventParticipantChanged, a.handleParticipantChanged)
	a.dispatcher.Subscribe(events.EventTicketClosed, a.handleClosed)
}

// History returns the recorded entries for a ticket, oldest first.
func (a *AuditService) History(ticketID string) []domain.TicketHistory {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.TicketHistory(nil), a.entries[ticketID]...)
}

// TicketHistory returns the full trail for a ticket, from the repository when
// one is attached.
func (a *AuditService) TicketHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if a.repo == nil {
		return a.History(ticketID), nil
	}
	entries, err := a.repo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return entries, nil
}

func (a *AuditService) handleTicketCreated(ctx context.Context, event events.Event) error {
	p, _ := event.Payload.(events.TicketCreatedPayload)
	a.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID),
		zap.String("user_id", event.Actor.UserID), zap.String("category", string(p.Category)))
	return a.record(ctx, event, domain.ChangeTypeCreated, "", p.Name)
}

func (a *AuditService) handleStatusChanged(ctx context.Context, event events.Event) error {
	p, _ := event.Payload.(events.TicketStatusChangedPayload)
	a.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID),
		zap.String("old_status", string(p.OldStatus)), zap.String("new_status", string(p.NewStatus)))
	return a.record(ctx, event, domain.ChangeTypeStatusChange, string(p.OldStatus), string(p.NewStatus))
}

func (a *AuditService) handleRenamed(ctx context.Context, event events.Event) error {
	p, _ := event.Payload.(events.TicketRenamedPayload)
	a.logger.Info("TicketRenamed", zap.String("ticket_id", event.TicketID),
		zap.String("old_name", p.OldName), zap.String("new_name", p.NewName))
	return a.record(ctx, event, domain.ChangeTypeRename, p.OldName, p.NewName)
}

func (a *AuditService) handleAnswerRecorded(ctx context.Context, event events.Event) error {
	p, _ := event.Payload.(events.AnswerRecordedPayload)
	a.logger.Debug("AnswerRecorded", zap.String("ticket_id", event.TicketID), zap.String("question", p.Question))
	return a.record(ctx, event, domain.ChangeTypeAnswerRecorded, p.Question, p.Preview)
}

func (a *AuditService) handleParticipantChanged(ctx context.Context, event events.Event) error {
	p, _ := event.Payload.(events.ParticipantChangedPayload)
	change := domain.ChangeTypeParticipantRemoved
	if p.Added {
		change = domain.ChangeTypeParticipantAdded
	}
	a.logger.Info("ParticipantChanged", zap.String("ticket_id", event.TicketID),
		zap.String("user_id", p.UserID), zap.Bool("added", p.Added), zap.String("by", event.Actor.UserID))
	return a.record(ctx, event, change, "", p.UserID)
}

func (a *AuditService) handleClosed(ctx context.Context, event events.Event) error {
	p, _ := event.Payload.(events.TicketClosedPayload)
	a.logger.Info("TicketClosed", zap.String("ticket_id", event.TicketID),
		zap.String("by", event.Actor.UserID), zap.Bool("archived", p.Archived))
	return a.record(ctx, event, domain.ChangeTypeClosed, p.Name, fmt.Sprintf("archived=%t", p.Archived))
}

func (a *AuditService) record(ctx context.Context, event events.Event, change domain.ChangeType, oldValue, newValue string) error {
	entry := domain.TicketHistory{
		TicketID:   event.TicketID,
		ChangedBy:  event.Actor.UserID,
		ChangeType: change,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  event.Timestamp,
	}
	a.mu.Lock()
	list := append(a.entries[event.TicketID], entry)
	if len(list) > a.depth {
		list = list[len(list)-a.depth:]
	}
	a.entries[event.TicketID] = list
	a.mu.Unlock()

	if a.repo == nil {
		return nil
	}
	if err := a.repo.Create(ctx, &entry); err != nil {
		return fmt.Errorf("persist %s history for %s: %w", change, event.TicketID, err)
	}
	return nil
}
