package usecase

import (
	"cinema-ticketing/internal/cache"
	"cinema-ticketing/internal/data/repository"
	"cinema-ticketing/internal/event"
	"cinema-ticketing/internal/ledger"
	"cinema-ticketing/pkg/clock"
	"cinema-ticketing/pkg/database"
	"cinema-ticketing/pkg/utils"

	"go.uber.org/zap"
)

// Deps carries what every service is built from.
type Deps struct {
	Repo      *repository.Repository
	UoW       database.UnitOfWork
	Ledger    *ledger.Ledger
	Cache     cache.AvailabilityCache
	Publisher event.Publisher
	Clock     clock.Clock
	Config    *utils.Config
	Log       *zap.Logger
}

type Service struct {
	Session SessionService
	Booking BookingService
}

func NewService(deps Deps) *Service {
	loader := newSessionLoader(deps.Repo, deps.Ledger, deps.Log)
	return &Service{
		Session: newSessionService(deps, loader),
		Booking: newBookingService(deps, loader),
	}
}
