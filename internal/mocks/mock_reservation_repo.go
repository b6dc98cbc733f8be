package mocks

import (
	"context"
	"time"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/internal/data/repository"
	"cinema-ticketing/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockReservationRepo struct {
	mock.Mock
	repository.ReservationRepository
}

func (m *MockReservationRepo) Create(reservation *entity.Reservation) database.Mutation {
	args := m.Called(reservation)
	return args.Get(0).(database.Mutation)
}

func (m *MockReservationRepo) Transition(reservation *entity.Reservation, from entity.ReservationStatus) database.Mutation {
	args := m.Called(reservation, from)
	return args.Get(0).(database.Mutation)
}

func (m *MockReservationRepo) ExpireHeld(ids []uuid.UUID, at time.Time) database.Mutation {
	args := m.Called(ids, at)
	return args.Get(0).(database.Mutation)
}

func (m *MockReservationRepo) FlagRefunds(ids []uuid.UUID, at time.Time) database.Mutation {
	args := m.Called(ids, at)
	return args.Get(0).(database.Mutation)
}

func (m *MockReservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	args := m.Called(ctx, id)
	reservation, _ := args.Get(0).(*entity.Reservation)
	return reservation, args.Error(1)
}

func (m *MockReservationRepo) FindActiveBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.Reservation, error) {
	args := m.Called(ctx, sessionID)
	reservations, _ := args.Get(0).([]*entity.Reservation)
	return reservations, args.Error(1)
}

type MockReservationSlotRepo struct {
	mock.Mock
	repository.ReservationSlotRepository
}

func (m *MockReservationSlotRepo) FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.ReservationSlot, error) {
	args := m.Called(ctx, sessionID)
	slots, _ := args.Get(0).([]*entity.ReservationSlot)
	return slots, args.Error(1)
}

func (m *MockReservationSlotRepo) Hold(sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation {
	args := m.Called(sessionID, reservationID, seatIDs, at)
	return args.Get(0).(database.Mutation)
}

func (m *MockReservationSlotRepo) Book(sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation {
	args := m.Called(sessionID, reservationID, seatIDs, at)
	return args.Get(0).(database.Mutation)
}

func (m *MockReservationSlotRepo) Release(sessionID, reservationID uuid.UUID, seatIDs []uuid.UUID, at time.Time) database.Mutation {
	args := m.Called(sessionID, reservationID, seatIDs, at)
	return args.Get(0).(database.Mutation)
}

func (m *MockReservationSlotRepo) DeleteBySessionID(sessionID uuid.UUID) database.Mutation {
	args := m.Called(sessionID)
	return args.Get(0).(database.Mutation)
}

type MockTicketRepo struct {
	mock.Mock
	repository.TicketRepository
}

func (m *MockTicketRepo) CreateBatch(tickets []*entity.Ticket) database.Mutation {
	args := m.Called(tickets)
	return args.Get(0).(database.Mutation)
}

func (m *MockTicketRepo) FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*entity.Ticket, error) {
	args := m.Called(ctx, reservationID)
	tickets, _ := args.Get(0).([]*entity.Ticket)
	return tickets, args.Error(1)
}

func (m *MockTicketRepo) CountBySessionID(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReservationRepo) FindSessionsWithExpiredHolds(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, cutoff)
	sessionIDs, _ := args.Get(0).([]uuid.UUID)
	return sessionIDs, args.Error(1)
}
