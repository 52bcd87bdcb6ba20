package repository

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// FileStore keeps tickets in memory and rewrites the whole document on every
// mutation. When a write fails the in-memory state stays authoritative and the
// next mutation retries the full save.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	settings domain.Settings
	tickets  map[string]*domain.Ticket
	dirty    bool
	logger   *zap.Logger
}

// NewFileStore loads the document at path, falling back to an empty store.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	doc := ReadDocument(path, logger)
	logger.Info("ticket store loaded", zap.String("path", path), zap.Int("tickets", len(doc.Tickets)))
	return &FileStore{
		path:     path,
		settings: doc.Settings,
		tickets:  doc.Tickets,
		logger:   logger,
	}
}

// Settings returns the static configuration section of the document.
func (s *FileStore) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *FileStore) Get(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return t.Clone(), nil
}

func (s *FileStore) Upsert(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket.Clone()
	return s.flushLocked()
}

func (s *FileStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return domain.ErrTicketNotFound
	}
	delete(s.tickets, id)
	return s.flushLocked()
}

func (s *FileStore) List(_ context.Context) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FileStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets), nil
}

func (s *FileStore) CountByOwner(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.tickets {
		if t.OwnerUserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *FileStore) CountByOwnerAndGroup(_ context.Context, userID, groupID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.tickets {
		if t.OwnerUserID == userID && t.CategoryGroupID == groupID {
			n++
		}
	}
	return n, nil
}

// Flush retries a pending save, if any.
func (s *FileStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.flushLocked()
}

// Pending reports whether the last save failed.
func (s *FileStore) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *FileStore) flushLocked() error {
	doc := &Document{Settings: s.settings, Tickets: s.tickets}
	if err := WriteDocument(s.path, doc); err != nil {
		s.dirty = true
		s.logger.Error("ticket document save failed; keeping in-memory state", zap.String("path", s.path), zap.Error(err))
		return apperrors.NewPersistenceError(err)
	}
	s.dirty = false
	return nil
}
