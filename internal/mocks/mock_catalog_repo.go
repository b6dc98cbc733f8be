package mocks

import (
	"context"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/internal/data/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockFilmRepo struct {
	mock.Mock
	repository.FilmRepository
}

func (m *MockFilmRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Film, error) {
	args := m.Called(ctx, id)
	film, _ := args.Get(0).(*entity.Film)
	return film, args.Error(1)
}

type MockHallRepo struct {
	mock.Mock
	repository.HallRepository
}

func (m *MockHallRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Hall, error) {
	args := m.Called(ctx, id)
	hall, _ := args.Get(0).(*entity.Hall)
	return hall, args.Error(1)
}

type MockSeatRepo struct {
	mock.Mock
	repository.SeatRepository
}

func (m *MockSeatRepo) FindByHallID(ctx context.Context, hallID uuid.UUID) ([]*entity.Seat, error) {
	args := m.Called(ctx, hallID)
	seats, _ := args.Get(0).([]*entity.Seat)
	return seats, args.Error(1)
}

type MockVisitorRepo struct {
	mock.Mock
	repository.VisitorRepository
}

func (m *MockVisitorRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
