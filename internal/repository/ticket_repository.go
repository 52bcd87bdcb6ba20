package repository

import (
	"context"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// TicketStore is the durable mapping from ticket id to ticket record.
// Mutations return only once the change is persisted.
type TicketStore interface {
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	Upsert(ctx context.Context, ticket *domain.Ticket) error
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Ticket, error)
	Count(ctx context.Context) (int, error)
	CountByOwner(ctx context.Context, userID string) (int, error)
	CountByOwnerAndGroup(ctx context.Context, userID, groupID string) (int, error)
}
