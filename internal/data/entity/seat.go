package entity

import "github.com/google/uuid"

type Seat struct {
	BaseSimple
	HallID     uuid.UUID `db:"hall_id"`
	SeatRow    string    `db:"seat_row"`    // A, B, C, etc.
	SeatColumn int       `db:"seat_column"` // 1, 2, 3, etc.
	Label      string    `db:"label"`       // A1, A2, B1, etc.
}
