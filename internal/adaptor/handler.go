package adaptor

import (
	"net/http"

	"cinema-ticketing/internal/usecase"
	apperrors "cinema-ticketing/pkg/errors"
	"cinema-ticketing/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Session *SessionHandler
	Booking *BookingHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Session: NewSessionHandler(service.Session, log),
		Booking: NewBookingHandler(service.Booking, log),
	}
}

// pathID reads the {id} URL parameter. On failure it has already written
// the 400 response.
func pathID(w http.ResponseWriter, r *http.Request, resource string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		utils.ResponseBadRequest(w, resource+" ID is required", nil)
		return uuid.Nil, false
	}
	id, err := utils.ParseUUID(raw)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+resource+" ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}

// handleServiceError writes the error's stable code and status. Unknown
// errors are logged and answered as INTERNAL_ERROR.
func handleServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	appErr := apperrors.AsAppError(err)

	switch {
	case appErr.Code == apperrors.CodeInternal:
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return

	case appErr.HTTPStatus >= http.StatusInternalServerError:
		log.Error(operation+" failed",
			zap.Error(err),
			zap.String("operation", operation),
			zap.String("code", appErr.Code))

	default:
		log.Warn(operation+" rejected",
			zap.String("operation", operation),
			zap.String("code", appErr.Code),
			zap.String("reason", appErr.Message))
	}

	utils.ResponseError(w, appErr)
}
