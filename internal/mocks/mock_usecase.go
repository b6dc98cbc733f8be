package mocks

import (
	"context"

	"cinema-ticketing/internal/dto/request"
	"cinema-ticketing/internal/dto/response"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) HoldSeats(ctx context.Context, sessionID uuid.UUID, req *request.HoldSeatsRequest) (*response.HoldResponse, error) {
	args := m.Called(ctx, sessionID, req)
	hold, _ := args.Get(0).(*response.HoldResponse)
	return hold, args.Error(1)
}

func (m *MockBookingService) ConfirmBooking(ctx context.Context, reservationID uuid.UUID) (*response.BookingResponse, error) {
	args := m.Called(ctx, reservationID)
	booking, _ := args.Get(0).(*response.BookingResponse)
	return booking, args.Error(1)
}

func (m *MockBookingService) CancelHold(ctx context.Context, reservationID uuid.UUID) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

func (m *MockBookingService) GetAvailability(ctx context.Context, sessionID uuid.UUID) (*response.AvailabilityResponse, error) {
	args := m.Called(ctx, sessionID)
	availability, _ := args.Get(0).(*response.AvailabilityResponse)
	return availability, args.Error(1)
}

func (m *MockBookingService) GetReservation(ctx context.Context, reservationID uuid.UUID) (*response.ReservationResponse, error) {
	args := m.Called(ctx, reservationID)
	reservation, _ := args.Get(0).(*response.ReservationResponse)
	return reservation, args.Error(1)
}

func (m *MockBookingService) Sweep(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) ScheduleSession(ctx context.Context, req *request.ScheduleSessionRequest) (*response.SessionResponse, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*response.SessionResponse)
	return session, args.Error(1)
}

func (m *MockSessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*response.SessionResponse, error) {
	args := m.Called(ctx, sessionID)
	session, _ := args.Get(0).(*response.SessionResponse)
	return session, args.Error(1)
}

func (m *MockSessionService) GetSeatUniverse(ctx context.Context, sessionID uuid.UUID) (*response.SeatUniverseResponse, error) {
	args := m.Called(ctx, sessionID)
	universe, _ := args.Get(0).(*response.SeatUniverseResponse)
	return universe, args.Error(1)
}

func (m *MockSessionService) CancelSession(ctx context.Context, sessionID uuid.UUID) (*response.CancelSessionResponse, error) {
	args := m.Called(ctx, sessionID)
	resp, _ := args.Get(0).(*response.CancelSessionResponse)
	return resp, args.Error(1)
}

func (m *MockSessionService) ArchiveFinished(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}
