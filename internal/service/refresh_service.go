package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/lock"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
)

// RefreshService keeps each ticket's summary message in line with the store.
type RefreshService struct {
	store     repository.TicketStore
	platform  platform.Client
	presenter *Presenter
	locker    lock.Locker
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time

	pending sync.WaitGroup
}

// RefreshDependencies bundles collaborators for the refresh service.
type RefreshDependencies struct {
	Store     repository.TicketStore
	Platform  platform.Client
	Presenter *Presenter
	Locker    lock.Locker
	Metrics   *observability.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// SweepResult summarizes one pass over the store.
type SweepResult struct {
	Refreshed int
	Failed    int
}

// NewRefreshService constructs the service.
func NewRefreshService(deps RefreshDependencies) *RefreshService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &RefreshService{
		store:     deps.Store,
		platform:  deps.Platform,
		presenter: deps.Presenter,
		locker:    deps.Locker,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       now,
	}
}

// Refresh re-renders one ticket's summary. It holds the ticket lock, so it
// always reads state committed by the mutation that triggered it. A summary
// message that disappeared is posted again.
func (s *RefreshService) Refresh(ctx context.Context, ticketID string) error {
	unlock, err := s.locker.Lock(ctx, lock.TicketKey(ticketID))
	if err != nil {
		return err
	}
	defer unlock()

	ticket, err := s.store.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return err
	}
	msg := s.presenter.Summary(ticket, count)

	err = s.platform.EditMessage(ctx, ticket.ID, ticket.SummaryMessageID, msg)
	if err == nil {
		s.metrics.RecordOperation("refresh", "ok")
		return nil
	}
	if !platform.IsNotFound(err) {
		s.metrics.RecordOperation("refresh", "error")
		return err
	}

	messageID, sendErr := s.platform.SendMessage(ctx, ticket.ID, msg)
	if sendErr != nil {
		s.metrics.RecordOperation("refresh", "error")
		return errors.Join(err, sendErr)
	}
	s.logger.Info("summary message re-posted",
		zap.String("ticket_id", ticket.ID),
		zap.String("old_message_id", ticket.SummaryMessageID),
		zap.String("message_id", messageID))
	ticket.SummaryMessageID = messageID
	ticket.UpdatedAt = s.now()
	if err := s.store.Upsert(ctx, ticket); err != nil {
		return err
	}
	s.metrics.RecordOperation("refresh", "reposted")
	return nil
}

// RefreshLater refreshes a ticket after delay without blocking the caller.
func (s *RefreshService) RefreshLater(ctx context.Context, ticketID string, delay time.Duration) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		if err := s.Refresh(ctx, ticketID); err != nil && !errors.Is(err, domain.ErrTicketNotFound) {
			s.logger.Warn("delayed summary refresh failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
	}()
}

// Wait blocks until all refreshes started by RefreshLater have finished.
func (s *RefreshService) Wait() {
	s.pending.Wait()
}

// Sweep refreshes every stored ticket. Failures are logged and counted, never fatal.
func (s *RefreshService) Sweep(ctx context.Context) (SweepResult, error) {
	tickets, err := s.store.List(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	var res SweepResult
	for _, t := range tickets {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err := s.Refresh(ctx, t.ID); err != nil {
			if errors.Is(err, domain.ErrTicketNotFound) {
				continue
			}
			res.Failed++
			s.logger.Warn("summary refresh failed", zap.String("ticket_id", t.ID), zap.Error(err))
			continue
		}
		res.Refreshed++
	}
	s.metrics.RecordSweep(s.now())
	return res, nil
}
