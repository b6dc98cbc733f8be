package wire

import (
	"net/http"

	"cinema-ticketing/internal/adaptor"
	"cinema-ticketing/internal/usecase"
	"cinema-ticketing/pkg/middleware"
	"cinema-ticketing/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds the services and the HTTP router on top of them.
func Wiring(deps usecase.Deps) *App {
	service := usecase.NewService(deps)
	handler := adaptor.NewHandler(service, deps.Log)

	return &App{
		Router:  setupRouter(handler, deps.Config.App.AllowedOrigins, deps.Log),
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, allowedOrigins []string, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(allowedOrigins))

	wireSession(r, handler.Session)
	wireBooking(r, handler.Booking)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseNotFound(w, "route not found")
	})

	return r
}
