package utils

import (
	"encoding/json"
	"net/http"

	apperrors "cinema-ticketing/pkg/errors"
)

type Response struct {
	Status  bool   `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// ResponseJSON writes JSON response with custom status code
func ResponseJSON(w http.ResponseWriter, httpStatus int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(body)
}

// ------------- Success responses -------------

// returns 200 OK
func ResponseSuccess(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusOK, Response{Status: true, Message: message, Data: data})
}

// returns 201 Created
func ResponseCreated(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusCreated, Response{Status: true, Message: message, Data: data})
}

// ------------- Error responses -------------

// ResponseError writes an AppError with its stable code and details.
func ResponseError(w http.ResponseWriter, err *apperrors.AppError) {
	body := Response{
		Status:  false,
		Code:    err.Code,
		Message: err.Message,
	}
	if len(err.Details) > 0 {
		body.Errors = err.Details
	}
	ResponseJSON(w, err.HTTPStatus, body)
}

// returns 400 Bad Request
func ResponseBadRequest(w http.ResponseWriter, message string, errors any) {
	ResponseJSON(w, http.StatusBadRequest, Response{
		Status:  false,
		Code:    apperrors.CodeInvalidInput,
		Message: message,
		Errors:  errors,
	})
}

// returns 404 Not Found
func ResponseNotFound(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusNotFound, Response{Status: false, Code: apperrors.CodeNotFound, Message: message})
}

// returns 500 Internal Server Error
func ResponseInternalError(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusInternalServerError, Response{Status: false, Code: apperrors.CodeInternal, Message: message})
}
