package repository

import (
	"context"
	"fmt"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SeatRepository interface {
	// FindByHallID returns the hall layout ordered by row then column.
	FindByHallID(ctx context.Context, hallID uuid.UUID) ([]*entity.Seat, error)
}

type seatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatRepository(db database.PgxIface, log *zap.Logger) SeatRepository {
	return &seatRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat")),
	}
}

func (r *seatRepository) FindByHallID(ctx context.Context, hallID uuid.UUID) ([]*entity.Seat, error) {
	query := `
		SELECT id, hall_id, seat_row, seat_column, label, created_at
		FROM seats
		WHERE hall_id = $1
		ORDER BY seat_row, seat_column
	`

	rows, err := r.db.Query(ctx, query, hallID)
	if err != nil {
		r.log.Error("Failed to query seats by hall ID",
			zap.Error(err),
			zap.String("hall_id", hallID.String()),
		)
		return nil, fmt.Errorf("find seats for hall %s: %w", hallID.String(), err)
	}
	defer rows.Close()

	var seats []*entity.Seat
	for rows.Next() {
		var seat entity.Seat
		if err := rows.Scan(
			&seat.ID,
			&seat.HallID,
			&seat.SeatRow,
			&seat.SeatColumn,
			&seat.Label,
			&seat.CreatedAt,
		); err != nil {
			r.log.Error("Failed to scan seat row", zap.Error(err))
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, &seat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seats for hall %s: %w", hallID.String(), err)
	}

	return seats, nil
}
