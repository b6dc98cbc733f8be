package wire

import (
	"cinema-ticketing/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	// Seat holds and the display seat map (may be slightly stale)
	r.Post("/api/sessions/{id}/holds", bookingHandler.HoldSeats)
	r.Get("/api/sessions/{id}/availability", bookingHandler.GetAvailability)

	// Reservation lifecycle
	r.Get("/api/reservations/{id}", bookingHandler.GetReservation)
	r.Delete("/api/reservations/{id}", bookingHandler.CancelHold)
	r.Post("/api/reservations/{id}/confirm", bookingHandler.ConfirmBooking)
}
