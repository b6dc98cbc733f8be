package middleware

import (
	"fmt"
	"net/http"

	apperrors "cinema-ticketing/pkg/errors"
	"cinema-ticketing/pkg/utils"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Recover answers a panicking request with the standard INTERNAL_ERROR
// envelope. http.ErrAbortHandler is passed on so the server can drop the
// connection.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				appErr := apperrors.Internal("Internal server error", fmt.Errorf("panic: %v", rec))
				logger.Error("Handler panicked",
					zap.Error(appErr.Err),
					zap.String("request_id", chimw.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				utils.ResponseError(w, appErr)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
