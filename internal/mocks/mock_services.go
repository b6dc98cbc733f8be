package mocks

import (
	"context"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/internal/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockAvailabilityCache struct {
	mock.Mock
}

func (m *MockAvailabilityCache) Get(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]entity.SlotState, error) {
	args := m.Called(ctx, sessionID)
	seats, _ := args.Get(0).(map[uuid.UUID]entity.SlotState)
	return seats, args.Error(1)
}

func (m *MockAvailabilityCache) Set(ctx context.Context, sessionID uuid.UUID, seats map[uuid.UUID]entity.SlotState) error {
	args := m.Called(ctx, sessionID, seats)
	return args.Error(0)
}

func (m *MockAvailabilityCache) Invalidate(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) BookingConfirmed(ctx context.Context, e event.BookingConfirmed) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockPublisher) RefundRequested(ctx context.Context, e event.RefundRequested) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockPublisher) HoldExpired(ctx context.Context, e event.HoldExpired) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}
