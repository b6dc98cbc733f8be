package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeExpired      = "HOLD_EXPIRED"
	CodeCapacity     = "CAPACITY_EXCEEDED"
	CodePersistence  = "PERSISTENCE_ERROR"
	CodeBusy         = "LEDGER_BUSY"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeInternal     = "INTERNAL_ERROR"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// SeatConflict names the seats that could not be taken. Seats are sorted so
// callers and logs see a stable order.
func SeatConflict(seats []uuid.UUID) *AppError {
	sorted := make([]uuid.UUID, len(seats))
	copy(sorted, seats)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	return &AppError{
		Code:       CodeConflict,
		Message:    "seat no longer available",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"seats": sorted},
	}
}

func Expired(message string) *AppError {
	return &AppError{
		Code:       CodeExpired,
		Message:    message,
		HTTPStatus: http.StatusGone,
	}
}

func Capacity(message string) *AppError {
	return &AppError{
		Code:       CodeCapacity,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Persistence(message string, err error) *AppError {
	return &AppError{
		Code:       CodePersistence,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func Busy(message string) *AppError {
	return &AppError{
		Code:       CodeBusy,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// As finds the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func AsAppError(err error) *AppError {
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// ConflictSeats returns the seats named by a SeatConflict error, or nil.
func ConflictSeats(err error) []uuid.UUID {
	appErr, ok := As(err)
	if !ok || appErr.Code != CodeConflict || appErr.Details == nil {
		return nil
	}
	seats, _ := appErr.Details["seats"].([]uuid.UUID)
	return seats
}
