package response

import (
	"time"

	"cinema-ticketing/internal/data/entity"

	"github.com/shopspring/decimal"
)

type SessionResponse struct {
	ID          string               `json:"id"`
	FilmID      string               `json:"film_id"`
	HallID      string               `json:"hall_id"`
	StartsAt    time.Time            `json:"starts_at"`
	EndsAt      time.Time            `json:"ends_at"`
	Capacity    int                  `json:"capacity"`
	Price       decimal.Decimal      `json:"price"`
	Status      entity.SessionStatus `json:"status"`
	CancelledAt *time.Time           `json:"cancelled_at,omitempty"`
	TicketsSold int64                `json:"tickets_sold"`
}

type SeatResponse struct {
	ID     string `json:"id"`
	Row    string `json:"row"`
	Column int    `json:"column"`
	Label  string `json:"label"`
}

type SeatUniverseResponse struct {
	SessionID string         `json:"session_id"`
	Seats     []SeatResponse `json:"seats"`
}

type CancelSessionResponse struct {
	SessionID        string   `json:"session_id"`
	ExpiredHolds     []string `json:"expired_holds"`
	RefundRequested  []string `json:"refund_requested"`
	AlreadyCancelled bool     `json:"already_cancelled"`
}

func SessionToResponse(s *entity.Session) *SessionResponse {
	return &SessionResponse{
		ID:          s.ID.String(),
		FilmID:      s.FilmID.String(),
		HallID:      s.HallID.String(),
		StartsAt:    s.StartsAt,
		EndsAt:      s.EndsAt,
		Capacity:    s.Capacity,
		Price:       s.Price,
		Status:      s.Status,
		CancelledAt: s.CancelledAt,
	}
}

func SeatToResponse(s *entity.Seat) SeatResponse {
	return SeatResponse{
		ID:     s.ID.String(),
		Row:    s.SeatRow,
		Column: s.SeatColumn,
		Label:  s.Label,
	}
}
