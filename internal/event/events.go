package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueRefundRequested  = "refund.requested"
	QueueHoldExpired      = "hold.expired"
)

var queues = []string{QueueBookingConfirmed, QueueRefundRequested, QueueHoldExpired}

type TicketIssued struct {
	TicketID uuid.UUID       `json:"ticket_id"`
	SeatID   uuid.UUID       `json:"seat_id"`
	Code     string          `json:"code"`
	Price    decimal.Decimal `json:"price"`
}

type BookingConfirmed struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	SessionID     uuid.UUID       `json:"session_id"`
	VisitorID     uuid.UUID       `json:"visitor_id"`
	Tickets       []TicketIssued  `json:"tickets"`
	Total         decimal.Decimal `json:"total"`
	ConfirmedAt   time.Time       `json:"confirmed_at"`
}

type RefundRequested struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	SessionID     uuid.UUID       `json:"session_id"`
	VisitorID     uuid.UUID       `json:"visitor_id"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAt   time.Time       `json:"requested_at"`
}

type HoldExpired struct {
	ReservationID uuid.UUID   `json:"reservation_id"`
	SessionID     uuid.UUID   `json:"session_id"`
	VisitorID     uuid.UUID   `json:"visitor_id"`
	SeatIDs       []uuid.UUID `json:"seat_ids"`
	ExpiredAt     time.Time   `json:"expired_at"`
}
