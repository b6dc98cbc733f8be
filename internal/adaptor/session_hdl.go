package adaptor

import (
	"encoding/json"
	"net/http"

	"cinema-ticketing/internal/dto/request"
	"cinema-ticketing/internal/usecase"
	"cinema-ticketing/pkg/utils"

	"go.uber.org/zap"
)

type SessionHandler struct {
	service usecase.SessionService
	log     *zap.Logger
}

func NewSessionHandler(service usecase.SessionService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		log:     log.With(zap.String("handler", "session")),
	}
}

// ScheduleSession handles POST /api/sessions
func (h *SessionHandler) ScheduleSession(w http.ResponseWriter, r *http.Request) {
	var req request.ScheduleSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	session, err := h.service.ScheduleSession(r.Context(), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "schedule session")
		return
	}

	utils.ResponseCreated(w, "Session scheduled", session)
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "Session")
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		handleServiceError(h.log, w, err, "get session")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// GetSeatUniverse handles GET /api/sessions/{id}/seats
func (h *SessionHandler) GetSeatUniverse(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "Session")
	if !ok {
		return
	}

	seats, err := h.service.GetSeatUniverse(r.Context(), sessionID)
	if err != nil {
		handleServiceError(h.log, w, err, "get seat universe")
		return
	}

	utils.ResponseSuccess(w, "success", seats)
}

// CancelSession handles POST /api/sessions/{id}/cancel
func (h *SessionHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "Session")
	if !ok {
		return
	}

	result, err := h.service.CancelSession(r.Context(), sessionID)
	if err != nil {
		handleServiceError(h.log, w, err, "cancel session")
		return
	}

	utils.ResponseSuccess(w, "Session cancelled", result)
}
