package mocks

import (
	"context"

	"cinema-ticketing/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// NopMutation is what mocked repositories hand back; MockUnitOfWork never
// runs it.
var NopMutation database.Mutation = func(context.Context, pgx.Tx) error { return nil }

type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Commit(ctx context.Context, mutations ...database.Mutation) error {
	args := m.Called(ctx, len(mutations))
	return args.Error(0)
}
