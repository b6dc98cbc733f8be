package wire

import (
	"cinema-ticketing/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireSession(r chi.Router, sessionHandler *adaptor.SessionHandler) {
	r.Post("/api/sessions", sessionHandler.ScheduleSession)
	r.Get("/api/sessions/{id}", sessionHandler.GetSession)
	r.Get("/api/sessions/{id}/seats", sessionHandler.GetSeatUniverse)
	r.Post("/api/sessions/{id}/cancel", sessionHandler.CancelSession)
}
