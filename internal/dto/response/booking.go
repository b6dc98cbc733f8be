package response

import (
	"time"

	"cinema-ticketing/internal/data/entity"

	"github.com/shopspring/decimal"
)

type HoldResponse struct {
	ReservationID string    `json:"reservation_id"`
	SessionID     string    `json:"session_id"`
	SeatIDs       []string  `json:"seat_ids"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type TicketResponse struct {
	ID       string          `json:"id"`
	SeatID   string          `json:"seat_id"`
	Price    decimal.Decimal `json:"price"`
	Code     string          `json:"code"`
	IssuedAt time.Time       `json:"issued_at"`
}

type BookingResponse struct {
	ReservationID string           `json:"reservation_id"`
	SessionID     string           `json:"session_id"`
	VisitorID     string           `json:"visitor_id"`
	Tickets       []TicketResponse `json:"tickets"`
	Total         decimal.Decimal  `json:"total"`
	ConfirmedAt   time.Time        `json:"confirmed_at"`
}

type ReservationResponse struct {
	ID              string                   `json:"id"`
	SessionID       string                   `json:"session_id"`
	VisitorID       string                   `json:"visitor_id"`
	SeatIDs         []string                 `json:"seat_ids"`
	Status          entity.ReservationStatus `json:"status"`
	ExpiresAt       time.Time                `json:"expires_at"`
	ConfirmedAt     *time.Time               `json:"confirmed_at,omitempty"`
	RefundRequested bool                     `json:"refund_requested"`
	Tickets         []TicketResponse         `json:"tickets,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

type AvailabilityResponse struct {
	SessionID string                      `json:"session_id"`
	Seats     map[string]entity.SlotState `json:"seats"`
	Available int                         `json:"available"`
	Held      int                         `json:"held"`
	Booked    int                         `json:"booked"`
}

// Helper converters
func TicketToResponse(t *entity.Ticket) TicketResponse {
	return TicketResponse{
		ID:       t.ID.String(),
		SeatID:   t.SeatID.String(),
		Price:    t.Price,
		Code:     t.Code,
		IssuedAt: t.IssuedAt,
	}
}

func ReservationToResponse(r *entity.Reservation, tickets []*entity.Ticket) *ReservationResponse {
	resp := &ReservationResponse{
		ID:              r.ID.String(),
		SessionID:       r.SessionID.String(),
		VisitorID:       r.VisitorID.String(),
		SeatIDs:         make([]string, len(r.SeatIDs)),
		Status:          r.Status,
		ExpiresAt:       r.ExpiresAt,
		ConfirmedAt:     r.ConfirmedAt,
		RefundRequested: r.RefundRequested,
		CreatedAt:       r.CreatedAt,
	}
	for i, id := range r.SeatIDs {
		resp.SeatIDs[i] = id.String()
	}
	for _, t := range tickets {
		resp.Tickets = append(resp.Tickets, TicketToResponse(t))
	}
	return resp
}
