package request

type HoldSeatsRequest struct {
	VisitorID string   `json:"visitor_id" validate:"required,uuid"`
	SeatIDs   []string `json:"seat_ids" validate:"required,min=1,dive,uuid"`
}
