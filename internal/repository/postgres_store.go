package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

const ticketColumns = `id, owner_user_id, owner_display_name, category, category_group_id, name,
        summary_message_id, answers, status, close_token, close_requested_by, created_at, updated_at`

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore instantiates a TicketStore backed by the tickets table.
func NewPostgresStore(pool *pgxpool.Pool) TicketStore {
	return &postgresStore{pool: pool}
}

func (r *postgresStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (r *postgresStore) Upsert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, owner_user_id, owner_display_name, category, category_group_id, name,
            summary_message_id, answers, status, close_token, close_requested_by, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (id) DO UPDATE SET
            owner_display_name=EXCLUDED.owner_display_name,
            name=EXCLUDED.name,
            summary_message_id=EXCLUDED.summary_message_id,
            answers=EXCLUDED.answers,
            status=EXCLUDED.status,
            close_token=EXCLUDED.close_token,
            close_requested_by=EXCLUDED.close_requested_by,
            updated_at=EXCLUDED.updated_at`
	answers := ticket.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.OwnerUserID,
		ticket.OwnerDisplayName,
		ticket.Category,
		ticket.CategoryGroupID,
		ticket.Name,
		ticket.SummaryMessageID,
		answers,
		ticket.Status,
		ticket.CloseToken,
		ticket.CloseRequestedBy,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

func (r *postgresStore) Remove(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *postgresStore) List(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *postgresStore) Count(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM tickets`)
}

func (r *postgresStore) CountByOwner(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM tickets WHERE owner_user_id=$1`, userID)
}

func (r *postgresStore) CountByOwnerAndGroup(ctx context.Context, userID, groupID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM tickets WHERE owner_user_id=$1 AND category_group_id=$2`, userID, groupID)
}

func (r *postgresStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerUserID,
		&ticket.OwnerDisplayName,
		&ticket.Category,
		&ticket.CategoryGroupID,
		&ticket.Name,
		&ticket.SummaryMessageID,
		&ticket.Answers,
		&ticket.Status,
		&ticket.CloseToken,
		&ticket.CloseRequestedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ticket.Answers == nil {
		ticket.Answers = map[string]string{}
	}
	return &ticket, nil
}
