package repository

import (
	"cinema-ticketing/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Film            FilmRepository
	Hall            HallRepository
	Seat            SeatRepository
	Visitor         VisitorRepository
	Session         SessionRepository
	Reservation     ReservationRepository
	ReservationSlot ReservationSlotRepository
	Ticket          TicketRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Film:            NewFilmRepository(db, log),
		Hall:            NewHallRepository(db, log),
		Seat:            NewSeatRepository(db, log),
		Visitor:         NewVisitorRepository(db, log),
		Session:         NewSessionRepository(db, log),
		Reservation:     NewReservationRepository(db, log),
		ReservationSlot: NewReservationSlotRepository(db, log),
		Ticket:          NewTicketRepository(db, log),
	}
}
