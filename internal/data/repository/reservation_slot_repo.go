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

// ReservationSlotRepository writes slot transitions. Every transition is
// guarded by the state it expects to find and bumps the row version, so a
// write that raced another instance is caught at commit time.
type ReservationSlotRepository interface {
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.ReservationSlot, error)

	Hold(sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation
	Book(sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation
	Release(sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation
	DeleteBySessionID(sessionID uuid.UUID) database.Mutation
}

type reservationSlotRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservationSlotRepository(db database.PgxIface, log *zap.Logger) ReservationSlotRepository {
	return &reservationSlotRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation_slot")),
	}
}

func (r *reservationSlotRepository) FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.ReservationSlot, error) {
	query := `
		SELECT rs.session_id, rs.seat_id, rs.state, rs.reservation_id, rs.version, rs.updated_at
		FROM reservation_slots rs
		JOIN seats s ON s.id = rs.seat_id
		WHERE rs.session_id = $1
		ORDER BY s.seat_row, s.seat_column
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		r.log.Error("Failed to query reservation slots",
			zap.Error(err),
			zap.String("session_id", sessionID.String()),
		)
		return nil, fmt.Errorf("find slots for session %s: %w", sessionID.String(), err)
	}
	defer rows.Close()

	var slots []*entity.ReservationSlot
	for rows.Next() {
		var slot entity.ReservationSlot
		if err := rows.Scan(
			&slot.SessionID,
			&slot.SeatID,
			&slot.State,
			&slot.ReservationID,
			&slot.Version,
			&slot.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation slot: %w", err)
		}
		slots = append(slots, &slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots for session %s: %w", sessionID.String(), err)
	}

	return slots, nil
}

func (r *reservationSlotRepository) Hold(sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation {
	return r.transition("hold", `
		UPDATE reservation_slots
		SET state = 'held', reservation_id = $3, version = version + 1, updated_at = $4
		WHERE session_id = $1 AND seat_id = ANY($2) AND state = 'available'
		RETURNING seat_id
	`, sessionID, reservationID, seatIDs, at)
}

func (r *reservationSlotRepository) Book(sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation {
	return r.transition("book", `
		UPDATE reservation_slots
		SET state = 'booked', version = version + 1, updated_at = $4
		WHERE session_id = $1 AND seat_id = ANY($2) AND state = 'held' AND reservation_id = $3
		RETURNING seat_id
	`, sessionID, reservationID, seatIDs, at)
}

func (r *reservationSlotRepository) Release(sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation {
	return r.transition("release", `
		UPDATE reservation_slots
		SET state = 'available', reservation_id = NULL, version = version + 1, updated_at = $4
		WHERE session_id = $1 AND seat_id = ANY($2) AND state = 'held' AND reservation_id = $3
		RETURNING seat_id
	`, sessionID, reservationID, seatIDs, at)
}

// transition runs a guarded update and fails with a seat conflict naming
// every seat whose row was not in the expected state.
func (r *reservationSlotRepository) transition(op, query string, sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, sessionID, seatIDs, reservationID, at)
		if err != nil {
			r.log.Error("Failed to "+op+" reservation slots",
				zap.Error(err),
				zap.String("session_id", sessionID.String()),
				zap.String("reservation_id", reservationID.String()),
			)
			return fmt.Errorf("%s slots for reservation %s: %w", op, reservationID.String(), err)
		}
		updated, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		if err != nil {
			return fmt.Errorf("%s slots for reservation %s: %w", op, reservationID.String(), err)
		}

		if len(updated) == len(seatIDs) {
			return nil
		}

		done := make(map[uuid.UUID]bool, len(updated))
		for _, id := range updated {
			done[id] = true
		}
		var stale []uuid.UUID
		for _, id := range seatIDs {
			if !done[id] {
				stale = append(stale, id)
			}
		}

		r.log.Warn("Slot version check failed",
			zap.String("op", op),
			zap.String("session_id", sessionID.String()),
			zap.String("reservation_id", reservationID.String()),
			zap.Int("expected", len(seatIDs)),
			zap.Int("updated", len(updated)),
		)
		return apperrors.SeatConflict(stale)
	}
}

func (r *reservationSlotRepository) DeleteBySessionID(sessionID uuid.UUID) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM reservation_slots WHERE session_id = $1`, sessionID); err != nil {
			r.log.Error("Failed to delete reservation slots",
				zap.Error(err),
				zap.String("session_id", sessionID.String()),
			)
			return fmt.Errorf("delete slots for session %s: %w", sessionID.String(), err)
		}
		return nil
	}
}
