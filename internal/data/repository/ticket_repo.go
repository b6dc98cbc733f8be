package repository

import (
	"context"
	"fmt"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TicketRepository interface {
	CreateBatch(tickets []*entity.Ticket) database.Mutation
	FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*entity.Ticket, error)
	CountBySessionID(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

type ticketRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTicketRepository(db database.PgxIface, log *zap.Logger) TicketRepository {
	return &ticketRepository{
		db:  db,
		log: log.With(zap.String("repository", "ticket")),
	}
}

func (r *ticketRepository) CreateBatch(tickets []*entity.Ticket) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		if len(tickets) == 0 {
			return nil
		}

		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"tickets"},
			[]string{"id", "reservation_id", "session_id", "seat_id", "visitor_id", "price", "code", "issued_at"},
			pgx.CopyFromSlice(len(tickets), func(i int) ([]any, error) {
				t := tickets[i]
				return []any{t.ID, t.ReservationID, t.SessionID, t.SeatID, t.VisitorID, t.Price, t.Code, t.IssuedAt}, nil
			}),
		)
		if err != nil {
			r.log.Error("Failed to create tickets",
				zap.Error(err),
				zap.String("reservation_id", tickets[0].ReservationID.String()),
				zap.Int("count", len(tickets)),
			)
			return fmt.Errorf("create %d tickets for reservation %s: %w", len(tickets), tickets[0].ReservationID.String(), err)
		}
		if int(copied) != len(tickets) {
			return fmt.Errorf("create tickets: copied %d of %d", copied, len(tickets))
		}
		return nil
	}
}

func (r *ticketRepository) FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*entity.Ticket, error) {
	query := `
		SELECT id, reservation_id, session_id, seat_id, visitor_id, price, code, issued_at
		FROM tickets
		WHERE reservation_id = $1
		ORDER BY issued_at, id
	`

	rows, err := r.db.Query(ctx, query, reservationID)
	if err != nil {
		r.log.Error("Failed to query tickets",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return nil, fmt.Errorf("find tickets for reservation %s: %w", reservationID.String(), err)
	}
	defer rows.Close()

	var tickets []*entity.Ticket
	for rows.Next() {
		var t entity.Ticket
		if err := rows.Scan(
			&t.ID,
			&t.ReservationID,
			&t.SessionID,
			&t.SeatID,
			&t.VisitorID,
			&t.Price,
			&t.Code,
			&t.IssuedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets for reservation %s: %w", reservationID.String(), err)
	}

	return tickets, nil
}

func (r *ticketRepository) CountBySessionID(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count tickets",
			zap.Error(err),
			zap.String("session_id", sessionID.String()),
		)
		return 0, fmt.Errorf("count tickets for session %s: %w", sessionID.String(), err)
	}
	return count, nil
}
