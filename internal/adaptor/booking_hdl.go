package adaptor

import (
	"encoding/json"
	"net/http"

	"cinema-ticketing/internal/dto/request"
	"cinema-ticketing/internal/usecase"
	"cinema-ticketing/pkg/utils"

	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// HoldSeats handles POST /api/sessions/{id}/holds
func (h *BookingHandler) HoldSeats(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "Session")
	if !ok {
		return
	}

	var req request.HoldSeatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	hold, err := h.service.HoldSeats(r.Context(), sessionID, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "hold seats")
		return
	}

	utils.ResponseCreated(w, "Seats held", hold)
}

// ConfirmBooking handles POST /api/reservations/{id}/confirm
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := pathID(w, r, "Reservation")
	if !ok {
		return
	}

	booking, err := h.service.ConfirmBooking(r.Context(), reservationID)
	if err != nil {
		handleServiceError(h.log, w, err, "confirm booking")
		return
	}

	utils.ResponseSuccess(w, "Booking confirmed", booking)
}

// CancelHold handles DELETE /api/reservations/{id}
func (h *BookingHandler) CancelHold(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := pathID(w, r, "Reservation")
	if !ok {
		return
	}

	if err := h.service.CancelHold(r.Context(), reservationID); err != nil {
		handleServiceError(h.log, w, err, "cancel hold")
		return
	}

	utils.ResponseSuccess(w, "Hold cancelled", nil)
}

// GetReservation handles GET /api/reservations/{id}
func (h *BookingHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := pathID(w, r, "Reservation")
	if !ok {
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), reservationID)
	if err != nil {
		handleServiceError(h.log, w, err, "get reservation")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// GetAvailability handles GET /api/sessions/{id}/availability
func (h *BookingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "Session")
	if !ok {
		return
	}

	availability, err := h.service.GetAvailability(r.Context(), sessionID)
	if err != nil {
		handleServiceError(h.log, w, err, "get availability")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}
