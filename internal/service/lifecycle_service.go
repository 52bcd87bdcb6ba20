package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/lock"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

const (
	defaultMaxPerUser  = 2
	defaultMaxPerGroup = 1
	answerPreviewLen   = 64
)

// Limits bounds how many tickets one user may hold.
type Limits struct {
	MaxPerUser  int
	MaxPerGroup int
}

// LifecycleService drives tickets through their states.
type LifecycleService struct {
	store      repository.TicketStore
	platform   platform.Client
	presenter  *Presenter
	refresher  *RefreshService
	intake     *IntakeCollector
	archiver   *ArchiveService
	dispatcher events.Dispatcher
	locker     lock.Locker
	catalog    domain.Catalog
	settings   domain.Settings
	limits     Limits
	delay      time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	intakes map[string]context.CancelFunc
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	Store      repository.TicketStore
	Platform   platform.Client
	Presenter  *Presenter
	Refresher  *RefreshService
	Intake     *IntakeCollector
	Archiver   *ArchiveService
	Dispatcher events.Dispatcher
	Locker     lock.Locker
	Catalog    domain.Catalog
	Settings   domain.Settings
	Limits     Limits
	// InitialRefreshDelay postpones the first summary refresh after creation.
	InitialRefreshDelay time.Duration
	Metrics             *observability.Metrics
	Logger              *zap.Logger
	Now                 func() time.Time
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	limits := deps.Limits
	if limits.MaxPerUser <= 0 {
		limits.MaxPerUser = defaultMaxPerUser
	}
	if limits.MaxPerGroup <= 0 {
		limits.MaxPerGroup = defaultMaxPerGroup
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LifecycleService{
		store:      deps.Store,
		platform:   deps.Platform,
		presenter:  deps.Presenter,
		refresher:  deps.Refresher,
		intake:     deps.Intake,
		archiver:   deps.Archiver,
		dispatcher: deps.Dispatcher,
		locker:     deps.Locker,
		catalog:    deps.Catalog,
		settings:   deps.Settings,
		limits:     limits,
		delay:      deps.InitialRefreshDelay,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        now,
		baseCtx:    ctx,
		stop:       cancel,
		intakes:    make(map[string]context.CancelFunc),
	}
}

// SelectCategory opens a ticket for the actor. The limit check and the
// creation run under the actor's lock so concurrent selections cannot both pass.
func (s *LifecycleService) SelectCategory(ctx context.Context, actor domain.Actor, value string) (*domain.Ticket, error) {
	ticket, err := s.selectCategory(ctx, actor, value)
	if err != nil {
		s.fail("select_category", err)
		return nil, err
	}
	s.metrics.RecordOperation("select_category", "ok")

	s.publish(ctx, events.EventTicketCreated, ticket.ID, actor, events.TicketCreatedPayload{
		Category:        ticket.Category,
		CategoryGroupID: ticket.CategoryGroupID,
		Name:            ticket.Name,
	})
	s.refresher.RefreshLater(s.baseCtx, ticket.ID, s.delay)
	s.startIntake(ticket)
	return ticket.Clone(), nil
}

func (s *LifecycleService) selectCategory(ctx context.Context, actor domain.Actor, value string) (*domain.Ticket, error) {
	category, ok := domain.ParseCategory(value)
	if !ok {
		return nil, apperrors.NewValidationError("unknown ticket category", domain.ErrInvalidCategory,
			map[string]any{"category": value})
	}
	group, ok := s.settings.GroupFor(category)
	if !ok {
		return nil, apperrors.NewValidationError("ticket category is not configured", domain.ErrInvalidCategory,
			map[string]any{"category": value})
	}

	unlock, err := s.locker.Lock(ctx, lock.UserKey(actor.UserID))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer unlock()

	owned, err := s.store.CountByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if owned >= s.limits.MaxPerUser {
		return nil, apperrors.NewValidationError("you already have the maximum number of open tickets",
			domain.ErrOwnerLimitExceeded, map[string]any{"limit": s.limits.MaxPerUser})
	}
	inGroup, err := s.store.CountByOwnerAndGroup(ctx, actor.UserID, group)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if inGroup >= s.limits.MaxPerGroup {
		return nil, apperrors.NewValidationError("you already have an open ticket of this kind",
			domain.ErrGroupLimitExceeded, map[string]any{"category": string(category)})
	}

	name := "Ticket-" + actor.DisplayName
	channelID, err := s.platform.CreateChannel(ctx, platform.ChannelSpec{Name: name, ParentID: group})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.platform.GrantAccess(ctx, channelID, actor.UserID); err != nil {
		s.teardown(ctx, channelID)
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:               channelID,
		OwnerUserID:      actor.UserID,
		OwnerDisplayName: actor.DisplayName,
		Category:         category,
		CategoryGroupID:  group,
		Name:             name,
		Answers:          map[string]string{},
		Status:           domain.TicketStatusCreated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	summaryID, err := s.platform.SendMessage(ctx, channelID, s.presenter.Summary(ticket, openCountPending))
	if err != nil {
		s.teardown(ctx, channelID)
		return nil, apperrors.MapError(err)
	}
	ticket.SummaryMessageID = summaryID
	ticket.Status = domain.TicketStatusAwaitingAnswers

	if err := s.store.Upsert(ctx, ticket); err != nil {
		// Nothing half-created may survive a failed save.
		if rmErr := s.store.Remove(ctx, ticket.ID); rmErr != nil && !errors.Is(rmErr, domain.ErrTicketNotFound) {
			s.logger.Error("rollback of unsaved ticket failed", zap.String("ticket_id", ticket.ID), zap.Error(rmErr))
		}
		s.teardown(ctx, channelID)
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("user_id", actor.UserID),
		zap.String("category", string(category)))
	return ticket, nil
}

func (s *LifecycleService) teardown(ctx context.Context, channelID string) {
	if err := s.platform.DeleteChannel(ctx, channelID); err != nil && !platform.IsNotFound(err) {
		s.logger.Error("ticket channel could not be removed", zap.String("ticket_id", channelID), zap.Error(err))
	}
}

func (s *LifecycleService) startIntake(ticket *domain.Ticket) {
	job := IntakeJob{
		TicketID:    ticket.ID,
		ChannelID:   ticket.ID,
		OwnerUserID: ticket.OwnerUserID,
		Questions:   s.catalog[ticket.Category].Questions,
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	s.intakes[ticket.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forgetIntake(ticket.ID)
		err := s.intake.Run(ctx, job, s)
		switch {
		case err == nil:
			s.metrics.RecordOperation("intake", "complete")
		case errors.Is(err, domain.ErrIntakeTimeout):
			s.metrics.RecordOperation("intake", "timeout")
		case errors.Is(err, context.Canceled):
			s.metrics.RecordOperation("intake", "cancelled")
		default:
			s.metrics.RecordOperation("intake", "error")
			s.logger.Warn("intake ended with error", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}()
}

func (s *LifecycleService) forgetIntake(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.intakes[id]; ok {
		cancel()
		delete(s.intakes, id)
	}
}

// RecordAnswer stores one intake answer and refreshes the summary.
func (s *LifecycleService) RecordAnswer(ctx context.Context, ticketID, title, answer string) error {
	err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if t.Status != domain.TicketStatusAwaitingAnswers {
			return apperrors.NewConflict("ticket is not collecting answers", domain.ErrInvalidTransition, nil)
		}
		if !s.catalog.HasQuestion(t.Category, title) {
			return apperrors.NewValidationError("unknown intake question", nil,
				map[string]any{"question": title, "category": string(t.Category)})
		}
		if t.Answers == nil {
			t.Answers = map[string]string{}
		}
		t.Answers[title] = answer
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.EventAnswerRecorded, ticketID, domain.Actor{}, events.AnswerRecordedPayload{
		Question: title, Preview: truncateRunes(answer, answerPreviewLen),
	})
	s.refresh(ctx, ticketID)
	return nil
}

// CompleteIntake opens the ticket. A complete intake also renames the ticket
// with its category's naming rule.
func (s *LifecycleService) CompleteIntake(ctx context.Context, ticketID string, complete bool) error {
	var oldName, newName string
	var oldStatus domain.TicketStatus
	err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		oldStatus = t.Status
		if t.Status == domain.TicketStatusAwaitingAnswers {
			t.Status = domain.TicketStatusOpen
		}
		if !complete {
			return nil
		}
		rule := s.catalog[t.Category].Name
		if rule == nil {
			return nil
		}
		name, ok := rule(t.Answers)
		if !ok || name == t.Name {
			return nil
		}
		if err := s.platform.RenameChannel(ctx, t.ID, name); err != nil {
			s.logger.Warn("ticket channel not renamed", zap.String("ticket_id", t.ID), zap.Error(err))
			return nil
		}
		oldName, newName = t.Name, name
		t.Name = name
		return nil
	})
	if err != nil {
		return err
	}
	if oldStatus == domain.TicketStatusAwaitingAnswers {
		s.publish(ctx, events.EventTicketStatusChanged, ticketID, domain.Actor{}, events.TicketStatusChangedPayload{
			OldStatus: oldStatus, NewStatus: domain.TicketStatusOpen, Comment: intakeComment(complete),
		})
	}
	if newName != "" {
		s.publish(ctx, events.EventTicketRenamed, ticketID, domain.Actor{}, events.TicketRenamedPayload{
			OldName: oldName, NewName: newName,
		})
	}
	s.refresh(ctx, ticketID)
	return nil
}

func intakeComment(complete bool) string {
	if complete {
		return "intake completed"
	}
	return "intake aborted"
}

// Rename changes the ticket name and its channel name.
func (s *LifecycleService) Rename(ctx context.Context, ticketID string, actor domain.Actor, newName string) (*domain.Ticket, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		err := apperrors.NewValidationError("ticket name must not be empty", nil, nil)
		s.fail("rename", err)
		return nil, err
	}
	if err := s.requireStaff(actor); err != nil {
		s.fail("rename", err)
		return nil, err
	}
	var oldName string
	var out *domain.Ticket
	err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if err := s.platform.RenameChannel(ctx, t.ID, newName); err != nil {
			return apperrors.MapError(err)
		}
		oldName = t.Name
		t.Name = newName
		out = t.Clone()
		return nil
	})
	if err != nil {
		s.fail("rename", err)
		return nil, err
	}
	s.metrics.RecordOperation("rename", "ok")
	s.publish(ctx, events.EventTicketRenamed, ticketID, actor, events.TicketRenamedPayload{OldName: oldName, NewName: newName})
	s.refresh(ctx, ticketID)
	return out, nil
}

// RequestClose moves an open ticket to CloseRequested and returns the token
// the confirmation must carry. Repeated requests return the pending token.
func (s *LifecycleService) RequestClose(ctx context.Context, ticketID string, actor domain.Actor) (string, error) {
	if err := s.requireStaff(actor); err != nil {
		s.fail("request_close", err)
		return "", err
	}
	var token string
	changed := false
	err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		switch t.Status {
		case domain.TicketStatusCloseRequested:
			token = t.CloseToken
			return errUnchanged
		case domain.TicketStatusOpen:
			token = uuid.NewString()
			t.Status = domain.TicketStatusCloseRequested
			t.CloseToken = token
			t.CloseRequestedBy = actor.UserID
			changed = true
			return nil
		default:
			return apperrors.NewConflict("ticket cannot be closed yet", domain.ErrInvalidTransition,
				map[string]any{"status": string(t.Status)})
		}
	})
	if err != nil {
		s.fail("request_close", err)
		return "", err
	}
	s.metrics.RecordOperation("request_close", "ok")
	if changed {
		s.publish(ctx, events.EventTicketStatusChanged, ticketID, actor, events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusOpen, NewStatus: domain.TicketStatusCloseRequested,
		})
		s.refresh(ctx, ticketID)
	}
	return token, nil
}

// CancelClose returns a ticket with a pending close request to Open.
func (s *LifecycleService) CancelClose(ctx context.Context, ticketID string, actor domain.Actor) error {
	err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if err := s.requireOwnerOrStaff(t, actor); err != nil {
			return err
		}
		if t.Status != domain.TicketStatusCloseRequested {
			return apperrors.NewConflict("no close request is pending", domain.ErrInvalidTransition,
				map[string]any{"status": string(t.Status)})
		}
		t.Status = domain.TicketStatusOpen
		t.CloseToken = ""
		t.CloseRequestedBy = ""
		return nil
	})
	if err != nil {
		s.fail("cancel_close", err)
		return err
	}
	s.metrics.RecordOperation("cancel_close", "ok")
	s.publish(ctx, events.EventTicketStatusChanged, ticketID, actor, events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusCloseRequested, NewStatus: domain.TicketStatusOpen,
	})
	s.refresh(ctx, ticketID)
	return nil
}

// ConfirmClose archives and removes the ticket. A non-empty token must match
// the pending close request. Archive failures never block closure; the store
// removal is the commitment, after which the channel is torn down.
func (s *LifecycleService) ConfirmClose(ctx context.Context, ticketID string, actor domain.Actor, token string) (*domain.ClosedTicket, error) {
	closed, err := s.confirmClose(ctx, ticketID, actor, token)
	if err != nil {
		s.fail("confirm_close", err)
		return nil, err
	}
	s.metrics.RecordOperation("confirm_close", "ok")
	s.publish(ctx, events.EventTicketClosed, ticketID, actor, events.TicketClosedPayload{
		Name: closed.Ticket.Name, Archived: closed.Archived,
	})
	return closed, nil
}

func (s *LifecycleService) confirmClose(ctx context.Context, ticketID string, actor domain.Actor, token string) (*domain.ClosedTicket, error) {
	unlock, err := s.locker.Lock(ctx, lock.TicketKey(ticketID))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer unlock()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrStaff(ticket, actor); err != nil {
		return nil, err
	}
	if token != "" && (ticket.Status != domain.TicketStatusCloseRequested || ticket.CloseToken != token) {
		return nil, apperrors.NewConflict("this close confirmation is no longer valid", domain.ErrStaleConfirmation, nil)
	}

	closed := &domain.ClosedTicket{
		Ticket:   *ticket,
		ClosedBy: actor,
		ClosedAt: s.now(),
	}
	closed.Ticket.Status = domain.TicketStatusClosed
	if s.archiver != nil {
		archived, err := s.archiver.Archive(ctx, *closed)
		if err != nil {
			s.logger.Error("ticket closed without archive", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		closed.Archived = archived
	}

	if err := s.store.Remove(ctx, ticketID); err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			return nil, notFoundTicket(ticketID)
		}
		return nil, apperrors.MapError(err)
	}
	s.cancelIntake(ticketID)

	if err := s.platform.DeleteChannel(ctx, ticketID); err != nil && !platform.IsNotFound(err) {
		s.logger.Error("closed ticket channel not removed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	s.logger.Info("ticket closed",
		zap.String("ticket_id", ticketID),
		zap.String("user_id", actor.UserID),
		zap.Bool("archived", closed.Archived))
	return closed, nil
}

func (s *LifecycleService) cancelIntake(id string) {
	s.mu.Lock()
	cancel, ok := s.intakes[id]
	delete(s.intakes, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// AddParticipant grants a member access to the ticket channel.
func (s *LifecycleService) AddParticipant(ctx context.Context, ticketID string, actor domain.Actor, userID string) (*platform.Member, error) {
	member, err := s.changeParticipant(ctx, ticketID, actor, userID, true)
	if err != nil {
		s.fail("add_participant", err)
		return nil, err
	}
	s.metrics.RecordOperation("add_participant", "ok")
	return member, nil
}

// RemoveParticipant revokes a member's access to the ticket channel.
func (s *LifecycleService) RemoveParticipant(ctx context.Context, ticketID string, actor domain.Actor, userID string) (*platform.Member, error) {
	member, err := s.changeParticipant(ctx, ticketID, actor, userID, false)
	if err != nil {
		s.fail("remove_participant", err)
		return nil, err
	}
	s.metrics.RecordOperation("remove_participant", "ok")
	return member, nil
}

func (s *LifecycleService) changeParticipant(ctx context.Context, ticketID string, actor domain.Actor, userID string, add bool) (*platform.Member, error) {
	if err := s.requireStaff(actor); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidationError("a user id is required", nil, nil)
	}

	unlock, err := s.locker.Lock(ctx, lock.TicketKey(ticketID))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer unlock()

	if _, err := s.load(ctx, ticketID); err != nil {
		return nil, err
	}
	member, err := s.platform.FetchMember(ctx, userID)
	if err != nil {
		if platform.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", domain.ErrUserNotFound, map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	if add {
		err = s.platform.GrantAccess(ctx, ticketID, member.UserID)
	} else {
		err = s.platform.RevokeAccess(ctx, ticketID, member.UserID)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventParticipantChanged, ticketID, actor, events.ParticipantChangedPayload{
		UserID: member.UserID, Added: add,
	})
	return member, nil
}

// Recover runs once the platform session is ready: tickets whose intake was
// interrupted by a restart are opened, then every summary is refreshed.
func (s *LifecycleService) Recover(ctx context.Context) (int, error) {
	tickets, err := s.store.List(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	reopened := 0
	for _, t := range tickets {
		if t.Status != domain.TicketStatusAwaitingAnswers && t.Status != domain.TicketStatusCreated {
			continue
		}
		old := t.Status
		err := s.mutate(ctx, t.ID, func(rec *domain.Ticket) error {
			rec.Status = domain.TicketStatusOpen
			return nil
		})
		if err != nil {
			s.logger.Warn("interrupted intake not recovered", zap.String("ticket_id", t.ID), zap.Error(err))
			continue
		}
		reopened++
		s.publish(ctx, events.EventTicketStatusChanged, t.ID, domain.Actor{}, events.TicketStatusChangedPayload{
			OldStatus: old, NewStatus: domain.TicketStatusOpen, Comment: "intake interrupted by restart",
		})
	}
	if _, err := s.refresher.Sweep(ctx); err != nil {
		return reopened, err
	}
	return reopened, nil
}

// Get returns one ticket.
func (s *LifecycleService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.load(ctx, ticketID)
}

// List returns every live ticket, oldest first.
func (s *LifecycleService) List(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.store.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Refresh re-renders a ticket's summary on demand.
func (s *LifecycleService) Refresh(ctx context.Context, ticketID string) error {
	if err := s.refresher.Refresh(ctx, ticketID); err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			return notFoundTicket(ticketID)
		}
		return apperrors.MapError(err)
	}
	return nil
}

// IsStaff reports whether the actor holds the team role.
func (s *LifecycleService) IsStaff(actor domain.Actor) bool {
	return actor.HasRole(s.settings.TeamRoleID)
}

// Shutdown stops running intakes and waits for them to return.
func (s *LifecycleService) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.refresher.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// errUnchanged aborts a mutation without saving and without failing.
var errUnchanged = errors.New("unchanged")

// mutate applies fn to the stored ticket under the ticket lock and saves the
// result. The lock is released before returning so callers may refresh.
func (s *LifecycleService) mutate(ctx context.Context, ticketID string, fn func(*domain.Ticket) error) error {
	unlock, err := s.locker.Lock(ctx, lock.TicketKey(ticketID))
	if err != nil {
		return apperrors.MapError(err)
	}
	defer unlock()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := fn(ticket); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	ticket.UpdatedAt = s.now()
	if err := s.store.Upsert(ctx, ticket); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *LifecycleService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			return nil, notFoundTicket(ticketID)
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *LifecycleService) refresh(ctx context.Context, ticketID string) {
	if err := s.refresher.Refresh(ctx, ticketID); err != nil && !errors.Is(err, domain.ErrTicketNotFound) {
		s.logger.Warn("summary refresh failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *LifecycleService) requireStaff(actor domain.Actor) error {
	if s.IsStaff(actor) {
		return nil
	}
	return apperrors.NewForbidden("only the support team may do this")
}

func (s *LifecycleService) requireOwnerOrStaff(t *domain.Ticket, actor domain.Actor) error {
	if actor.UserID == t.OwnerUserID || s.IsStaff(actor) {
		return nil
	}
	return apperrors.NewForbidden("only the ticket owner or the support team may do this")
}

func (s *LifecycleService) publish(ctx context.Context, typ events.EventType, ticketID string, actor domain.Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		TicketID:  ticketID,
		Actor:     events.Actor{UserID: actor.UserID, DisplayName: actor.DisplayName},
		Timestamp: s.now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(typ)), zap.Error(err))
	}
}

func (s *LifecycleService) fail(op string, err error) {
	code := apperrors.CodeInternal
	if de := apperrors.ToDomainError(err); de != nil {
		code = de.Code
	}
	s.metrics.RecordOperation(op, "rejected")
	s.metrics.RecordError(op, code)
	if code == apperrors.CodePersistence || code == apperrors.CodeInternal {
		s.logger.Error("operation failed", zap.String("operation", op), zap.Error(err))
	}
}

func notFoundTicket(id string) error {
	return apperrors.NewNotFound("ticket", domain.ErrTicketNotFound, map[string]any{"ticket_id": id})
}
