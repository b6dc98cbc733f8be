package request

import (
	"time"

	"github.com/shopspring/decimal"
)

type ScheduleSessionRequest struct {
	FilmID   string          `json:"film_id" validate:"required,uuid"`
	HallID   string          `json:"hall_id" validate:"required,uuid"`
	StartsAt time.Time       `json:"starts_at" validate:"required"`
	Price    decimal.Decimal `json:"price"`
}
