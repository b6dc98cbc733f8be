package usecase

import (
	"errors"
	"time"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/internal/dto/request"
	"cinema-ticketing/internal/event"
	apperrors "cinema-ticketing/pkg/errors"
	"cinema-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func (s *ServiceTestSuite) scheduleRequest(filmID uuid.UUID, startsAt time.Time) *request.ScheduleSessionRequest {
	return &request.ScheduleSessionRequest{
		FilmID:   filmID.String(),
		HallID:   s.hallID.String(),
		StartsAt: startsAt,
		Price:    decimal.RequireFromString("9.90"),
	}
}

func (s *ServiceTestSuite) stubCatalog(filmID uuid.UUID) {
	s.films.On("FindByID", mock.Anything, filmID).Return(&entity.Film{
		Base:              entity.Base{ID: filmID},
		Title:             "Metropolis",
		DurationInMinutes: 120,
	}, nil)
	s.halls.On("FindByID", mock.Anything, s.hallID).Return(&entity.Hall{
		Base: entity.Base{ID: s.hallID},
		Name: "Hall 1",
	}, nil)
	s.seats.On("FindByHallID", mock.Anything, s.hallID).Return(s.hallSeats, nil)
}

func (s *ServiceTestSuite) TestScheduleSession() {
	filmID := uuid.New()
	s.stubCatalog(filmID)
	s.commitSucceeds(1)

	startsAt := s.clock.Now().Add(24 * time.Hour)
	resp, err := s.service.Session.ScheduleSession(s.ctx, s.scheduleRequest(filmID, startsAt))
	s.Require().NoError(err)

	s.Equal(startsAt, resp.StartsAt)
	// film runtime plus the cleaning buffer
	s.Equal(startsAt.Add(135*time.Minute), resp.EndsAt)
	s.Equal(4, resp.Capacity)
	s.Equal(entity.SessionStatusScheduled, resp.Status)
	s.True(decimal.RequireFromString("9.90").Equal(resp.Price))

	sessionID := uuid.MustParse(resp.ID)
	s.Require().True(s.ledger.Has(sessionID))
	universe, err := s.ledger.Universe(sessionID)
	s.Require().NoError(err)
	s.Equal(s.seatIDs, universe)

	s.sessions.AssertCalled(s.T(), "Schedule", mock.MatchedBy(func(session *entity.Session) bool {
		return session.ID == sessionID && session.HallID == s.hallID
	}), s.seatIDs)
}

func (s *ServiceTestSuite) TestScheduleSessionOverlapIsConflict() {
	filmID := uuid.New()
	s.stubCatalog(filmID)
	s.commitFails(apperrors.Conflict("hall already has a session in that time window"))

	_, err := s.service.Session.ScheduleSession(s.ctx, s.scheduleRequest(filmID, s.clock.Now().Add(time.Hour)))
	s.requireCode(err, apperrors.CodeConflict)
	s.Equal([]uuid.UUID{s.session.ID}, s.ledger.Sessions())
}

func (s *ServiceTestSuite) TestScheduleSessionRejectsBadInput() {
	knownFilm := uuid.New()
	s.stubCatalog(knownFilm)
	unknownFilm := uuid.New()
	s.films.On("FindByID", mock.Anything, unknownFilm).Return(nil, nil)

	negative := s.scheduleRequest(knownFilm, s.clock.Now().Add(time.Hour))
	negative.Price = decimal.NewFromInt(-1)

	tests := []struct {
		name     string
		req      *request.ScheduleSessionRequest
		wantCode string
	}{
		{"unknown film", s.scheduleRequest(unknownFilm, s.clock.Now().Add(time.Hour)), apperrors.CodeNotFound},
		{"start in the past", s.scheduleRequest(knownFilm, s.clock.Now().Add(-time.Minute)), apperrors.CodeValidation},
		{"negative price", negative, apperrors.CodeValidation},
		{"missing hall", &request.ScheduleSessionRequest{FilmID: knownFilm.String(), StartsAt: s.clock.Now().Add(time.Hour)}, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Session.ScheduleSession(s.ctx, tt.req)
			s.requireCode(err, tt.wantCode)
		})
	}
	s.uow.AssertNotCalled(s.T(), "Commit", mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestGetSession() {
	s.sessions.On("FindByID", mock.Anything, s.session.ID).Return(s.session, nil)
	s.tickets.On("CountBySessionID", mock.Anything, s.session.ID).Return(int64(3), nil)

	resp, err := s.service.Session.GetSession(s.ctx, s.session.ID)
	s.Require().NoError(err)
	s.Equal(s.session.ID.String(), resp.ID)
	s.Equal(int64(3), resp.TicketsSold)

	missing := uuid.New()
	s.sessions.On("FindByID", mock.Anything, missing).Return(nil, nil)
	_, err = s.service.Session.GetSession(s.ctx, missing)
	s.requireCode(err, apperrors.CodeNotFound)
}

func (s *ServiceTestSuite) TestGetSeatUniverse() {
	s.sessions.On("FindByID", mock.Anything, s.session.ID).Return(s.session, nil)
	s.seats.On("FindByHallID", mock.Anything, s.hallID).Return(s.hallSeats, nil)

	resp, err := s.service.Session.GetSeatUniverse(s.ctx, s.session.ID)
	s.Require().NoError(err)

	s.Require().Len(resp.Seats, len(s.hallSeats))
	for i, seat := range resp.Seats {
		s.Equal(s.seatIDs[i].String(), seat.ID)
		s.Equal(s.hallSeats[i].Label, seat.Label)
	}
}

func (s *ServiceTestSuite) TestCancelSession() {
	s.sessions.On("FindByID", mock.Anything, s.session.ID).Return(s.session, nil)

	held := s.hold(s.visitor(), s.seatIDs[0])
	booked := s.hold(s.visitor(), s.seatIDs[1], s.seatIDs[2])
	s.commitSucceeds(1)
	_, err := s.service.Booking.ConfirmBooking(s.ctx, booked)
	s.Require().NoError(err)

	s.commitSucceeds(1)
	resp, err := s.service.Session.CancelSession(s.ctx, s.session.ID)
	s.Require().NoError(err)

	s.Equal([]string{held.String()}, resp.ExpiredHolds)
	s.Equal([]string{booked.String()}, resp.RefundRequested)
	s.False(resp.AlreadyCancelled)

	s.Equal(entity.SlotAvailable, s.stateOf(s.seatIDs[0]))
	s.Equal(entity.SlotBooked, s.stateOf(s.seatIDs[1]))

	s.publisher.AssertCalled(s.T(), "RefundRequested", mock.Anything, mock.MatchedBy(func(e event.RefundRequested) bool {
		return e.ReservationID == booked && e.Amount.Equal(decimal.RequireFromString("25.00"))
	}))
	s.publisher.AssertCalled(s.T(), "HoldExpired", mock.Anything, mock.MatchedBy(func(e event.HoldExpired) bool {
		return e.ReservationID == held
	}))

	_, err = s.service.Booking.HoldSeats(s.ctx, s.session.ID, s.holdRequest(s.visitor(), s.seatIDs[3]))
	s.requireCode(err, apperrors.CodeConflict)

	again, err := s.service.Session.CancelSession(s.ctx, s.session.ID)
	s.Require().NoError(err)
	s.True(again.AlreadyCancelled)
}

func (s *ServiceTestSuite) TestCancelSessionWithoutRefunds() {
	s.service.Session.(*sessionService).config.RefundPolicy = utils.RefundPolicyNone
	s.sessions.On("FindByID", mock.Anything, s.session.ID).Return(s.session, nil)

	booked := s.hold(s.visitor(), s.seatIDs[0])
	s.commitSucceeds(1)
	_, err := s.service.Booking.ConfirmBooking(s.ctx, booked)
	s.Require().NoError(err)

	s.commitSucceeds(1)
	resp, err := s.service.Session.CancelSession(s.ctx, s.session.ID)
	s.Require().NoError(err)

	s.Empty(resp.RefundRequested)
	s.reservations.AssertNotCalled(s.T(), "FlagRefunds", mock.Anything, mock.Anything)
	s.publisher.AssertNotCalled(s.T(), "RefundRequested", mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestCancelSessionCommitFailureReopens() {
	s.sessions.On("FindByID", mock.Anything, s.session.ID).Return(s.session, nil)
	s.hold(s.visitor(), s.seatIDs[0])

	s.commitFails(apperrors.Persistence("storage commit failed", errors.New("broken pipe")))
	_, err := s.service.Session.CancelSession(s.ctx, s.session.ID)
	s.requireCode(err, apperrors.CodePersistence)

	s.Equal(entity.SlotHeld, s.stateOf(s.seatIDs[0]))
	s.hold(s.visitor(), s.seatIDs[1])
}

func (s *ServiceTestSuite) TestArchiveFinished() {
	s.sessions.On("FindEndedBefore", mock.Anything, s.clock.Now().Add(-24*time.Hour)).
		Return([]*entity.Session{s.session}, nil).Once()
	s.commitSucceeds(1)

	s.Equal(1, s.service.Session.ArchiveFinished(s.ctx))
	s.False(s.ledger.Has(s.session.ID))
	s.uow.AssertCalled(s.T(), "Commit", mock.Anything, 3)
}

func (s *ServiceTestSuite) TestArchiveFinishedKeepsSessionOnFailure() {
	s.sessions.On("FindEndedBefore", mock.Anything, mock.Anything).Return([]*entity.Session{s.session}, nil).Once()
	s.commitFails(apperrors.Persistence("storage commit failed", errors.New("timeout")))

	s.Equal(0, s.service.Session.ArchiveFinished(s.ctx))
	s.True(s.ledger.Has(s.session.ID))
}

func (s *ServiceTestSuite) TestArchiveFinishedRefusesHoldsWhileCommitting() {
	visitorID := s.visitor()
	heldID := s.hold(visitorID, s.seatIDs[0])
	lateVisitor := s.visitor()

	s.sessions.On("FindEndedBefore", mock.Anything, mock.Anything).Return([]*entity.Session{s.session}, nil).Once()
	var lateErr error
	s.uow.On("Commit", mock.Anything, 3).Return(nil).Once().Run(func(mock.Arguments) {
		_, lateErr = s.service.Booking.HoldSeats(s.ctx, s.session.ID, s.holdRequest(lateVisitor, s.seatIDs[1]))
	})

	s.Equal(1, s.service.Session.ArchiveFinished(s.ctx))

	s.requireCode(lateErr, apperrors.CodeBusy)
	s.reservations.AssertCalled(s.T(), "ExpireHeld", []uuid.UUID{heldID}, s.clock.Now())
	s.publisher.AssertCalled(s.T(), "HoldExpired", mock.Anything, mock.MatchedBy(func(e event.HoldExpired) bool {
		return e.ReservationID == heldID && e.VisitorID == visitorID
	}))
	s.False(s.ledger.Has(s.session.ID))
	s.Zero(s.ledger.ActiveHolds(visitorID))
}

func (s *ServiceTestSuite) TestArchiveFinishedLoadsSessionFirst() {
	sessionID := uuid.New()
	stored := *s.session
	stored.ID = sessionID
	heldID := uuid.New()

	s.sessions.On("FindEndedBefore", mock.Anything, mock.Anything).Return([]*entity.Session{&stored}, nil).Once()
	s.sessions.On("FindByID", mock.Anything, sessionID).Return(&stored, nil).Once()
	s.slots.On("FindBySessionID", mock.Anything, sessionID).Return([]*entity.ReservationSlot{
		{SessionID: sessionID, SeatID: s.seatIDs[0], State: entity.SlotHeld, ReservationID: &heldID},
	}, nil).Once()
	s.reservations.On("FindActiveBySessionID", mock.Anything, sessionID).Return([]*entity.Reservation{
		{
			Base:      entity.Base{ID: heldID, CreatedAt: s.clock.Now()},
			SessionID: sessionID,
			VisitorID: uuid.New(),
			SeatIDs:   []uuid.UUID{s.seatIDs[0]},
			Status:    entity.ReservationStatusHeld,
			ExpiresAt: s.clock.Now().Add(time.Minute),
		},
	}, nil).Once()
	s.commitSucceeds(1)

	s.Equal(1, s.service.Session.ArchiveFinished(s.ctx))
	s.reservations.AssertCalled(s.T(), "ExpireHeld", []uuid.UUID{heldID}, s.clock.Now())
	s.False(s.ledger.Has(sessionID))
}
