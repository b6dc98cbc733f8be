package entity

import (
	"time"

	"github.com/google/uuid"
)

type SlotState string

const (
	SlotAvailable SlotState = "available"
	SlotHeld      SlotState = "held"
	SlotBooked    SlotState = "booked"
)

// ReservationSlot is the unit of contention: one seat within one session.
type ReservationSlot struct {
	SessionID     uuid.UUID  `db:"session_id"`
	SeatID        uuid.UUID  `db:"seat_id"`
	State         SlotState  `db:"state"`
	ReservationID *uuid.UUID `db:"reservation_id"`
	Version       int64      `db:"version"`
	UpdatedAt     time.Time  `db:"updated_at"`
}
