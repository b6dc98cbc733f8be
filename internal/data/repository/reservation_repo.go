package repository

import (
	"context"
	"fmt"
	"time"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/pkg/database"
	apperrors "cinema-ticketing/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReservationRepository interface {
	Create(reservation *entity.Reservation) database.Mutation
	// Transition moves one reservation from the given status to its current
	// status, and fails with a conflict when the row is not in from.
	Transition(reservation *entity.Reservation, from entity.ReservationStatus) database.Mutation
	ExpireHeld(ids []uuid.UUID, at time.Time) database.Mutation
	FlagRefunds(ids []uuid.UUID, at time.Time) database.Mutation

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	FindActiveBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.Reservation, error)
	FindSessionsWithExpiredHolds(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

type reservationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservationRepository(db database.PgxIface, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation")),
	}
}

const reservationColumns = `id, session_id, visitor_id, seat_ids, status, expires_at, confirmed_at, refund_requested, created_at, updated_at`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	err := row.Scan(
		&res.ID,
		&res.SessionID,
		&res.VisitorID,
		&res.SeatIDs,
		&res.Status,
		&res.ExpiresAt,
		&res.ConfirmedAt,
		&res.RefundRequested,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) Create(reservation *entity.Reservation) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO reservations (id, session_id, visitor_id, seat_ids, status, expires_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			reservation.ID,
			reservation.SessionID,
			reservation.VisitorID,
			reservation.SeatIDs,
			reservation.Status,
			reservation.ExpiresAt,
			reservation.CreatedAt,
			reservation.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create reservation",
				zap.Error(err),
				zap.String("reservation_id", reservation.ID.String()),
				zap.String("session_id", reservation.SessionID.String()),
			)
			return fmt.Errorf("create reservation %s: %w", reservation.ID.String(), err)
		}
		return nil
	}
}

func (r *reservationRepository) Transition(reservation *entity.Reservation, from entity.ReservationStatus) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE reservations
			SET status = $2, confirmed_at = $3, refund_requested = $4, updated_at = $5
			WHERE id = $1 AND status = $6
		`,
			reservation.ID,
			reservation.Status,
			reservation.ConfirmedAt,
			reservation.RefundRequested,
			reservation.UpdatedAt,
			from,
		)
		if err != nil {
			r.log.Error("Failed to update reservation status",
				zap.Error(err),
				zap.String("reservation_id", reservation.ID.String()),
				zap.String("status", string(reservation.Status)),
			)
			return fmt.Errorf("update reservation %s: %w", reservation.ID.String(), err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflict(fmt.Sprintf("reservation %s is no longer %s", reservation.ID, from))
		}
		return nil
	}
}

func (r *reservationRepository) ExpireHeld(ids []uuid.UUID, at time.Time) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		if len(ids) == 0 {
			return nil
		}
		tag, err := tx.Exec(ctx, `
			UPDATE reservations SET status = 'expired', updated_at = $2
			WHERE id = ANY($1) AND status = 'held'
		`, ids, at)
		if err != nil {
			r.log.Error("Failed to expire reservations", zap.Error(err), zap.Int("count", len(ids)))
			return fmt.Errorf("expire %d reservations: %w", len(ids), err)
		}
		if int(tag.RowsAffected()) != len(ids) {
			return apperrors.Conflict(fmt.Sprintf("expected to expire %d reservations, expired %d", len(ids), tag.RowsAffected()))
		}
		return nil
	}
}

func (r *reservationRepository) FlagRefunds(ids []uuid.UUID, at time.Time) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		if len(ids) == 0 {
			return nil
		}
		_, err := tx.Exec(ctx, `
			UPDATE reservations SET refund_requested = TRUE, updated_at = $2
			WHERE id = ANY($1) AND status = 'booked'
		`, ids, at)
		if err != nil {
			r.log.Error("Failed to flag refunds", zap.Error(err), zap.Int("count", len(ids)))
			return fmt.Errorf("flag %d reservations for refund: %w", len(ids), err)
		}
		return nil
	}
}

func (r *reservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservation(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reservation by ID",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return nil, fmt.Errorf("find reservation %s: %w", id.String(), err)
	}

	return res, nil
}

func (r *reservationRepository) FindActiveBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE session_id = $1 AND status IN ('held', 'booked')
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		r.log.Error("Failed to query active reservations",
			zap.Error(err),
			zap.String("session_id", sessionID.String()),
		)
		return nil, fmt.Errorf("find active reservations for session %s: %w", sessionID.String(), err)
	}
	defer rows.Close()

	var reservations []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations for session %s: %w", sessionID.String(), err)
	}

	return reservations, nil
}

// FindSessionsWithExpiredHolds lists sessions that still have a held
// reservation expiring at or before cutoff.
func (r *reservationRepository) FindSessionsWithExpiredHolds(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT session_id
		FROM reservations
		WHERE status = 'held' AND expires_at <= $1
		LIMIT 100
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		r.log.Error("Failed to query sessions with expired holds",
			zap.Error(err),
			zap.Time("cutoff", cutoff),
		)
		return nil, fmt.Errorf("find sessions with expired holds: %w", err)
	}
	defer rows.Close()

	var sessionIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		sessionIDs = append(sessionIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions with expired holds: %w", err)
	}

	return sessionIDs, nil
}
