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

type SessionRepository interface {
	// Schedule locks the hall, rejects overlapping scheduled sessions, and
	// writes the session together with one available slot per seat.
	Schedule(session *entity.Session, seatIDs []uuid.UUID) database.Mutation
	MarkCancelled(id uuid.UUID, at time.Time) database.Mutation
	MarkCompleted(id uuid.UUID, at time.Time) database.Mutation

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	FindEndedBefore(ctx context.Context, cutoff time.Time) ([]*entity.Session, error)
}

type sessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSessionRepository(db database.PgxIface, log *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "session")),
	}
}

const sessionColumns = `id, film_id, hall_id, starts_at, ends_at, capacity, price, status, cancelled_at, created_at, updated_at`

func scanSession(row pgx.Row) (*entity.Session, error) {
	var s entity.Session
	err := row.Scan(
		&s.ID,
		&s.FilmID,
		&s.HallID,
		&s.StartsAt,
		&s.EndsAt,
		&s.Capacity,
		&s.Price,
		&s.Status,
		&s.CancelledAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) Schedule(session *entity.Session, seatIDs []uuid.UUID) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		var hallID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM halls WHERE id = $1 FOR UPDATE`, session.HallID).Scan(&hallID)
		if err == pgx.ErrNoRows {
			return apperrors.NotFoundWithID("hall", session.HallID.String())
		}
		if err != nil {
			return fmt.Errorf("lock hall %s: %w", session.HallID.String(), err)
		}

		rows, err := tx.Query(ctx, `
			SELECT id FROM sessions
			WHERE hall_id = $1 AND status = 'scheduled'
			  AND starts_at < $3 AND ends_at > $2
		`, session.HallID, session.StartsAt, session.EndsAt)
		if err != nil {
			return fmt.Errorf("check overlapping sessions in hall %s: %w", session.HallID.String(), err)
		}
		overlapping, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		if err != nil {
			return fmt.Errorf("collect overlapping sessions: %w", err)
		}
		if len(overlapping) > 0 {
			r.log.Warn("Hall already booked for time window",
				zap.String("hall_id", session.HallID.String()),
				zap.Time("starts_at", session.StartsAt),
				zap.Time("ends_at", session.EndsAt),
				zap.Int("overlapping", len(overlapping)),
			)
			return apperrors.Conflict("hall already has a session in that time window").
				WithDetails(map[string]any{"sessions": overlapping})
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO sessions (id, film_id, hall_id, starts_at, ends_at, capacity, price, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			session.ID,
			session.FilmID,
			session.HallID,
			session.StartsAt,
			session.EndsAt,
			session.Capacity,
			session.Price,
			session.Status,
			session.CreatedAt,
			session.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create session",
				zap.Error(err),
				zap.String("session_id", session.ID.String()),
				zap.String("hall_id", session.HallID.String()),
			)
			return fmt.Errorf("create session %s: %w", session.ID.String(), err)
		}

		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"reservation_slots"},
			[]string{"session_id", "seat_id", "state", "version", "updated_at"},
			pgx.CopyFromSlice(len(seatIDs), func(i int) ([]any, error) {
				return []any{session.ID, seatIDs[i], string(entity.SlotAvailable), int64(0), session.CreatedAt}, nil
			}),
		)
		if err != nil {
			r.log.Error("Failed to create reservation slots",
				zap.Error(err),
				zap.String("session_id", session.ID.String()),
				zap.Int("seats", len(seatIDs)),
			)
			return fmt.Errorf("create slots for session %s: %w", session.ID.String(), err)
		}
		if int(copied) != len(seatIDs) {
			return fmt.Errorf("create slots for session %s: copied %d of %d", session.ID.String(), copied, len(seatIDs))
		}

		return nil
	}
}

func (r *sessionRepository) MarkCancelled(id uuid.UUID, at time.Time) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE sessions SET status = 'cancelled', cancelled_at = $2, updated_at = $2
			WHERE id = $1 AND status = 'scheduled'
		`, id, at)
		if err != nil {
			r.log.Error("Failed to cancel session",
				zap.Error(err),
				zap.String("session_id", id.String()),
			)
			return fmt.Errorf("cancel session %s: %w", id.String(), err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflict("session is not scheduled")
		}
		return nil
	}
}

func (r *sessionRepository) MarkCompleted(id uuid.UUID, at time.Time) database.Mutation {
	return func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE sessions SET status = 'completed', updated_at = $2
			WHERE id = $1 AND status = 'scheduled'
		`, id, at)
		if err != nil {
			r.log.Error("Failed to complete session",
				zap.Error(err),
				zap.String("session_id", id.String()),
			)
			return fmt.Errorf("complete session %s: %w", id.String(), err)
		}
		return nil
	}
}

func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find session by ID",
			zap.Error(err),
			zap.String("session_id", id.String()),
		)
		return nil, fmt.Errorf("find session %s: %w", id.String(), err)
	}

	return session, nil
}

// FindEndedBefore lists sessions that are still open for archival: scheduled
// or cancelled sessions whose end is before cutoff.
func (r *sessionRepository) FindEndedBefore(ctx context.Context, cutoff time.Time) ([]*entity.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status IN ('scheduled', 'cancelled') AND ends_at < $1
		  AND EXISTS (SELECT 1 FROM reservation_slots rs WHERE rs.session_id = sessions.id)
		ORDER BY ends_at
		LIMIT 100
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		r.log.Error("Failed to query ended sessions", zap.Error(err), zap.Time("cutoff", cutoff))
		return nil, fmt.Errorf("find sessions ended before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var sessions []*entity.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ended sessions: %w", err)
	}

	return sessions, nil
}
