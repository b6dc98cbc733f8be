package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusCompleted SessionStatus = "completed"
)

// Session is one showing of a film in a hall. Capacity is the hall's seat
// count at scheduling time.
type Session struct {
	Base
	FilmID      uuid.UUID       `db:"film_id"`
	HallID      uuid.UUID       `db:"hall_id"`
	StartsAt    time.Time       `db:"starts_at"`
	EndsAt      time.Time       `db:"ends_at"`
	Capacity    int             `db:"capacity"`
	Price       decimal.Decimal `db:"price"`
	Status      SessionStatus   `db:"status"`
	CancelledAt *time.Time      `db:"cancelled_at"`
}

func (s *Session) Overlaps(startsAt, endsAt time.Time) bool {
	return s.StartsAt.Before(endsAt) && startsAt.Before(s.EndsAt)
}
