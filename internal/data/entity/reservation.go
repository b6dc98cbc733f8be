package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusHeld      ReservationStatus = "held"
	ReservationStatusBooked    ReservationStatus = "booked"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

type Reservation struct {
	Base
	SessionID       uuid.UUID         `db:"session_id"`
	VisitorID       uuid.UUID         `db:"visitor_id"`
	SeatIDs         []uuid.UUID       `db:"seat_ids"`
	Status          ReservationStatus `db:"status"`
	ExpiresAt       time.Time         `db:"expires_at"`
	ConfirmedAt     *time.Time        `db:"confirmed_at"`
	RefundRequested bool              `db:"refund_requested"`
}

// IsExpired reports whether a held reservation can no longer be confirmed at now.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationStatusHeld && now.After(r.ExpiresAt)
}

func (r *Reservation) Clone() *Reservation {
	c := *r
	c.SeatIDs = append([]uuid.UUID(nil), r.SeatIDs...)
	if r.ConfirmedAt != nil {
		t := *r.ConfirmedAt
		c.ConfirmedAt = &t
	}
	return &c
}
