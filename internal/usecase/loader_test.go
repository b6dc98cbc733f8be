package usecase

import (
	"context"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/internal/data/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func (s *ServiceTestSuite) TestLoaderIgnoresCallerCancellation() {
	sessionID := uuid.New()
	stored := *s.session
	stored.ID = sessionID

	live := mock.MatchedBy(func(ctx context.Context) bool {
		_, bounded := ctx.Deadline()
		return ctx.Err() == nil && bounded
	})
	s.sessions.On("FindByID", live, sessionID).Return(&stored, nil).Once()
	s.slots.On("FindBySessionID", live, sessionID).Return([]*entity.ReservationSlot{
		{SessionID: sessionID, SeatID: s.seatIDs[0], State: entity.SlotAvailable},
	}, nil).Once()
	s.reservations.On("FindActiveBySessionID", live, sessionID).Return(nil, nil).Once()

	loader := newSessionLoader(&repository.Repository{
		Session:         s.sessions,
		Reservation:     s.reservations,
		ReservationSlot: s.slots,
	}, s.ledger, zap.NewNop())

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	s.Require().NoError(loader.ensure(ctx, sessionID))
	s.True(s.ledger.Has(sessionID))
	s.sessions.AssertExpectations(s.T())
}
