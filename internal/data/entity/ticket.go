package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID            uuid.UUID       `db:"id"`
	ReservationID uuid.UUID       `db:"reservation_id"`
	SessionID     uuid.UUID       `db:"session_id"`
	SeatID        uuid.UUID       `db:"seat_id"`
	VisitorID     uuid.UUID       `db:"visitor_id"`
	Price         decimal.Decimal `db:"price"`
	Code          string          `db:"code"`
	IssuedAt      time.Time       `db:"issued_at"`
}
