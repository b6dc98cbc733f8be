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

type MockSessionRepo struct {
	mock.Mock
	repository.SessionRepository
}

func (m *MockSessionRepo) Schedule(session *entity.Session, seatIDs []uuid.UUID) database.Mutation {
	args := m.Called(session, seatIDs)
	return args.Get(0).(database.Mutation)
}

func (m *MockSessionRepo) MarkCancelled(id uuid.UUID, at time.Time) database.Mutation {
	args := m.Called(id, at)
	return args.Get(0).(database.Mutation)
}

func (m *MockSessionRepo) MarkCompleted(id uuid.UUID, at time.Time) database.Mutation {
	args := m.Called(id, at)
	return args.Get(0).(database.Mutation)
}

func (m *MockSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*entity.Session)
	return session, args.Error(1)
}

func (m *MockSessionRepo) FindEndedBefore(ctx context.Context, cutoff time.Time) ([]*entity.Session, error) {
	args := m.Called(ctx, cutoff)
	sessions, _ := args.Get(0).([]*entity.Session)
	return sessions, args.Error(1)
}
