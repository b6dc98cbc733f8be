package usecase

import (
	"errors"
	"sync"
	"time"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/internal/dto/request"
	"cinema-ticketing/internal/event"
	apperrors "cinema-ticketing/pkg/errors"
	"cinema-ticketing/pkg/utils"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func (s *ServiceTestSuite) TestHoldSeats() {
	visitorID := s.visitor()
	s.commitSucceeds(1)

	resp, err := s.service.Booking.HoldSeats(s.ctx, s.session.ID, s.holdRequest(visitorID, s.seatIDs[0], s.seatIDs[1]))
	s.Require().NoError(err)

	s.Equal(s.session.ID.String(), resp.SessionID)
	s.Equal(s.clock.Now().Add(10*time.Minute), resp.ExpiresAt)
	s.Equal([]string{s.seatIDs[0].String(), s.seatIDs[1].String()}, resp.SeatIDs)

	s.Equal(entity.SlotHeld, s.stateOf(s.seatIDs[0]))
	s.Equal(entity.SlotHeld, s.stateOf(s.seatIDs[1]))
	s.Equal(entity.SlotAvailable, s.stateOf(s.seatIDs[2]))

	// reservation row + guarded slot update in one commit
	s.uow.AssertCalled(s.T(), "Commit", mock.Anything, 2)
	s.cache.AssertCalled(s.T(), "Invalidate", mock.Anything, s.session.ID)
}

func (s *ServiceTestSuite) TestHoldSeatsRejectsBadRequests() {
	visitorID := s.visitor()
	unknownVisitor := uuid.New()
	s.visitors.On("Exists", mock.Anything, unknownVisitor).Return(false, nil)

	tests := []struct {
		name     string
		req      *request.HoldSeatsRequest
		wantCode string
	}{
		{
			name:     "no seats",
			req:      &request.HoldSeatsRequest{VisitorID: visitorID.String()},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "malformed seat id",
			req:      &request.HoldSeatsRequest{VisitorID: visitorID.String(), SeatIDs: []string{"A1"}},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "more seats than allowed per hold",
			req:      s.holdRequest(visitorID, s.seatIDs...),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "unknown visitor",
			req:      s.holdRequest(unknownVisitor, s.seatIDs[0]),
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:     "duplicate seat",
			req:      s.holdRequest(visitorID, s.seatIDs[0], s.seatIDs[0]),
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "seat outside the hall",
			req:      s.holdRequest(visitorID, uuid.New()),
			wantCode: apperrors.CodeNotFound,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Booking.HoldSeats(s.ctx, s.session.ID, tt.req)
			s.requireCode(err, tt.wantCode)
		})
	}

	s.uow.AssertNotCalled(s.T(), "Commit", mock.Anything, mock.Anything)
	for _, id := range s.seatIDs {
		s.Equal(entity.SlotAvailable, s.stateOf(id))
	}
}

func (s *ServiceTestSuite) TestHoldSeatsConflictNamesTakenSeats() {
	first := s.visitor()
	second := s.visitor()
	s.hold(first, s.seatIDs[0])

	_, err := s.service.Booking.HoldSeats(s.ctx, s.session.ID, s.holdRequest(second, s.seatIDs[0], s.seatIDs[1]))
	s.requireCode(err, apperrors.CodeConflict)

	if diff := cmp.Diff([]uuid.UUID{s.seatIDs[0]}, apperrors.ConflictSeats(err)); diff != "" {
		s.Failf("conflicting seats mismatch", "(-want +got):\n%s", diff)
	}
	s.Equal(entity.SlotAvailable, s.stateOf(s.seatIDs[1]))
}

func (s *ServiceTestSuite) TestHoldSeatsCommitFailureLeavesSeatsAvailable() {
	visitorID := s.visitor()
	s.commitFails(apperrors.Persistence("storage commit failed", errors.New("connection reset")))

	_, err := s.service.Booking.HoldSeats(s.ctx, s.session.ID, s.holdRequest(visitorID, s.seatIDs[0]))
	s.requireCode(err, apperrors.CodePersistence)

	s.Equal(entity.SlotAvailable, s.stateOf(s.seatIDs[0]))
	s.Zero(s.ledger.ActiveHolds(visitorID))
}

func (s *ServiceTestSuite) TestHoldSeatsLoadsSessionFromStorage() {
	sessionID := uuid.New()
	stored := *s.session
	stored.ID = sessionID
	heldBy := uuid.New()

	s.sessions.On("FindByID", mock.Anything, sessionID).Return(&stored, nil).Once()
	s.slots.On("FindBySessionID", mock.Anything, sessionID).Return([]*entity.ReservationSlot{
		{SessionID: sessionID, SeatID: s.seatIDs[0], State: entity.SlotHeld, ReservationID: &heldBy},
		{SessionID: sessionID, SeatID: s.seatIDs[1], State: entity.SlotAvailable},
	}, nil).Once()
	s.reservations.On("FindActiveBySessionID", mock.Anything, sessionID).Return([]*entity.Reservation{
		{
			Base:      entity.Base{ID: heldBy, CreatedAt: s.clock.Now()},
			SessionID: sessionID,
			VisitorID: uuid.New(),
			SeatIDs:   []uuid.UUID{s.seatIDs[0]},
			Status:    entity.ReservationStatusHeld,
			ExpiresAt: s.clock.Now().Add(5 * time.Minute),
		},
	}, nil).Once()

	visitorID := s.visitor()
	_, err := s.service.Booking.HoldSeats(s.ctx, sessionID, s.holdRequest(visitorID, s.seatIDs[0]))
	s.requireCode(err, apperrors.CodeConflict)
	s.True(s.ledger.Has(sessionID))

	s.commitSucceeds(1)
	_, err = s.service.Booking.HoldSeats(s.ctx, sessionID, s.holdRequest(visitorID, s.seatIDs[1]))
	s.Require().NoError(err)

	// loaded once, served from memory afterwards
	s.sessions.AssertNumberOfCalls(s.T(), "FindByID", 1)
}

func (s *ServiceTestSuite) TestHoldSeatsUnknownSession() {
	sessionID := uuid.New()
	s.sessions.On("FindByID", mock.Anything, sessionID).Return(nil, nil)

	_, err := s.service.Booking.HoldSeats(s.ctx, sessionID, s.holdRequest(s.visitor(), s.seatIDs[0]))
	s.requireCode(err, apperrors.CodeNotFound)
}

func (s *ServiceTestSuite) TestConcurrentHoldsOnOneSeat() {
	s.visitors.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
	s.uow.On("Commit", mock.Anything, mock.Anything).Return(nil)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Booking.HoldSeats(s.ctx, s.session.ID, s.holdRequest(uuid.New(), s.seatIDs[2]))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperrors.HasCode(err, apperrors.CodeConflict), apperrors.HasCode(err, apperrors.CodeBusy):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(workers-1, conflicts)
}

func (s *ServiceTestSuite) TestConfirmBookingIssuesTickets() {
	visitorID := s.visitor()
	reservationID := s.hold(visitorID, s.seatIDs[0], s.seatIDs[1])

	s.sessions.On("FindByID", mock.Anything, s.session.ID).Return(s.session, nil)
	s.commitSucceeds(1)

	resp, err := s.service.Booking.ConfirmBooking(s.ctx, reservationID)
	s.Require().NoError(err)

	s.Len(resp.Tickets, 2)
	s.True(decimal.RequireFromString("25.00").Equal(resp.Total), "total %s", resp.Total)
	for i, t := range resp.Tickets {
		s.Equal(s.seatIDs[i].String(), t.SeatID)
		s.True(s.session.Price.Equal(t.Price))
		s.Equal(s.clock.Now(), t.IssuedAt)
		s.True(utils.VerifyTicketCode([]byte(testSigningKey), t.Code,
			uuid.MustParse(t.ID), s.session.ID, uuid.MustParse(t.SeatID)), "ticket %s has a bad code", t.ID)
	}

	s.Equal(entity.SlotBooked, s.stateOf(s.seatIDs[0]))
	s.Equal(entity.SlotBooked, s.stateOf(s.seatIDs[1]))

	// slot update + status transition + tickets
	s.uow.AssertCalled(s.T(), "Commit", mock.Anything, 3)
	s.publisher.AssertCalled(s.T(), "BookingConfirmed", mock.Anything, mock.MatchedBy(func(e event.BookingConfirmed) bool {
		return e.ReservationID == reservationID && len(e.Tickets) == 2
	}))

	_, err = s.service.Booking.ConfirmBooking(s.ctx, reservationID)
	s.requireCode(err, apperrors.CodeConflict)
}

func (s *ServiceTestSuite) TestConfirmBookingAfterExpiry() {
	visitorID := s.visitor()
	reservationID := s.hold(visitorID, s.seatIDs[0])
	s.sessions.On("FindByID", mock.Anything, s.session.ID).Return(s.session, nil)

	s.clock.Advance(10*time.Minute + time.Second)

	_, err := s.service.Booking.ConfirmBooking(s.ctx, reservationID)
	s.requireCode(err, apperrors.CodeExpired)
	// still held until the sweep runs
	s.Equal(entity.SlotHeld, s.stateOf(s.seatIDs[0]))

	s.commitSucceeds(1)
	s.Equal(1, s.service.Booking.Sweep(s.ctx))
	s.Equal(entity.SlotAvailable, s.stateOf(s.seatIDs[0]))

	s.reservations.On("FindByID", mock.Anything, reservationID).Return(&entity.Reservation{
		Base:      entity.Base{ID: reservationID},
		SessionID: s.session.ID,
		VisitorID: visitorID,
		SeatIDs:   []uuid.UUID{s.seatIDs[0]},
		Status:    entity.ReservationStatusExpired,
		ExpiresAt: s.clock.Now().Add(-time.Second),
	}, nil)

	_, err = s.service.Booking.ConfirmBooking(s.ctx, reservationID)
	s.requireCode(err, apperrors.CodeExpired)
}

func (s *ServiceTestSuite) TestConfirmBookingCommitFailureKeepsHold() {
	reservationID := s.hold(s.visitor(), s.seatIDs[0])
	s.sessions.On("FindByID", mock.Anything, s.session.ID).Return(s.session, nil)

	s.commitFails(apperrors.SeatConflict([]uuid.UUID{s.seatIDs[0]}))
	_, err := s.service.Booking.ConfirmBooking(s.ctx, reservationID)
	s.requireCode(err, apperrors.CodeConflict)
	s.Equal(entity.SlotHeld, s.stateOf(s.seatIDs[0]))
	s.publisher.AssertNotCalled(s.T(), "BookingConfirmed", mock.Anything, mock.Anything)

	s.commitSucceeds(1)
	_, err = s.service.Booking.ConfirmBooking(s.ctx, reservationID)
	s.Require().NoError(err)
	s.Equal(entity.SlotBooked, s.stateOf(s.seatIDs[0]))
}

func (s *ServiceTestSuite) TestCancelHold() {
	visitorID := s.visitor()
	reservationID := s.hold(visitorID, s.seatIDs[0], s.seatIDs[1])

	s.commitSucceeds(1)
	s.Require().NoError(s.service.Booking.CancelHold(s.ctx, reservationID))
	s.Equal(entity.SlotAvailable, s.stateOf(s.seatIDs[0]))
	s.Equal(entity.SlotAvailable, s.stateOf(s.seatIDs[1]))

	s.reservations.On("FindByID", mock.Anything, reservationID).Return(&entity.Reservation{
		Base:      entity.Base{ID: reservationID},
		SessionID: s.session.ID,
		Status:    entity.ReservationStatusCancelled,
	}, nil)
	err := s.service.Booking.CancelHold(s.ctx, reservationID)
	s.requireCode(err, apperrors.CodeConflict)
}

func (s *ServiceTestSuite) TestCancelHoldRejectsBookedReservation() {
	reservationID := s.hold(s.visitor(), s.seatIDs[0])
	s.sessions.On("FindByID", mock.Anything, s.session.ID).Return(s.session, nil)
	s.commitSucceeds(1)
	_, err := s.service.Booking.ConfirmBooking(s.ctx, reservationID)
	s.Require().NoError(err)

	err = s.service.Booking.CancelHold(s.ctx, reservationID)
	s.requireCode(err, apperrors.CodeConflict)
	s.Equal(entity.SlotBooked, s.stateOf(s.seatIDs[0]))
}

func (s *ServiceTestSuite) TestCancelHoldUnknownReservation() {
	reservationID := uuid.New()
	s.reservations.On("FindByID", mock.Anything, reservationID).Return(nil, nil)

	err := s.service.Booking.CancelHold(s.ctx, reservationID)
	s.requireCode(err, apperrors.CodeNotFound)
}

func (s *ServiceTestSuite) TestGetAvailabilityFromCache() {
	cached := map[uuid.UUID]entity.SlotState{
		s.seatIDs[0]: entity.SlotBooked,
		s.seatIDs[1]: entity.SlotAvailable,
	}
	s.cache.On("Get", mock.Anything, s.session.ID).Return(cached, nil).Once()

	resp, err := s.service.Booking.GetAvailability(s.ctx, s.session.ID)
	s.Require().NoError(err)

	s.Equal(1, resp.Booked)
	s.Equal(1, resp.Available)
	s.cache.AssertNotCalled(s.T(), "Set", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestGetAvailabilityRefreshesCacheOnMiss() {
	s.hold(s.visitor(), s.seatIDs[0])
	s.cache.On("Get", mock.Anything, s.session.ID).Return(nil, nil).Once()
	s.cache.On("Set", mock.Anything, s.session.ID, mock.Anything).Return(nil).Once()

	resp, err := s.service.Booking.GetAvailability(s.ctx, s.session.ID)
	s.Require().NoError(err)

	want := map[string]entity.SlotState{
		s.seatIDs[0].String(): entity.SlotHeld,
		s.seatIDs[1].String(): entity.SlotAvailable,
		s.seatIDs[2].String(): entity.SlotAvailable,
		s.seatIDs[3].String(): entity.SlotAvailable,
	}
	if diff := cmp.Diff(want, resp.Seats); diff != "" {
		s.Failf("seat map mismatch", "(-want +got):\n%s", diff)
	}
	s.Equal(1, resp.Held)
	s.Equal(3, resp.Available)
	s.cache.AssertExpectations(s.T())
}

func (s *ServiceTestSuite) TestGetAvailabilityIgnoresCacheErrors() {
	s.cache.On("Get", mock.Anything, s.session.ID).Return(nil, errors.New("redis down")).Once()
	s.cache.On("Set", mock.Anything, s.session.ID, mock.Anything).Return(errors.New("redis down")).Once()

	resp, err := s.service.Booking.GetAvailability(s.ctx, s.session.ID)
	s.Require().NoError(err)
	s.Equal(4, resp.Available)
}

func (s *ServiceTestSuite) TestGetReservationWithTickets() {
	reservationID := uuid.New()
	confirmedAt := s.clock.Now()
	s.reservations.On("FindByID", mock.Anything, reservationID).Return(&entity.Reservation{
		Base:        entity.Base{ID: reservationID, CreatedAt: confirmedAt},
		SessionID:   s.session.ID,
		VisitorID:   uuid.New(),
		SeatIDs:     []uuid.UUID{s.seatIDs[0]},
		Status:      entity.ReservationStatusBooked,
		ConfirmedAt: &confirmedAt,
	}, nil)
	s.tickets.On("FindByReservationID", mock.Anything, reservationID).Return([]*entity.Ticket{
		{ID: uuid.New(), ReservationID: reservationID, SeatID: s.seatIDs[0], Price: s.session.Price, Code: "ABCDEFGHJKLM"},
	}, nil)

	resp, err := s.service.Booking.GetReservation(s.ctx, reservationID)
	s.Require().NoError(err)
	s.Equal(entity.ReservationStatusBooked, resp.Status)
	s.Require().Len(resp.Tickets, 1)
	s.Equal("ABCDEFGHJKLM", resp.Tickets[0].Code)
}

func (s *ServiceTestSuite) TestSweepReleasesExpiredHolds() {
	early := s.hold(s.visitor(), s.seatIDs[0])
	s.clock.Advance(5 * time.Minute)
	late := s.hold(s.visitor(), s.seatIDs[1])

	s.clock.Advance(5 * time.Minute)
	s.commitSucceeds(1)
	s.Equal(1, s.service.Booking.Sweep(s.ctx))

	s.Equal(entity.SlotAvailable, s.stateOf(s.seatIDs[0]))
	s.Equal(entity.SlotHeld, s.stateOf(s.seatIDs[1]))
	s.publisher.AssertCalled(s.T(), "HoldExpired", mock.Anything, mock.MatchedBy(func(e event.HoldExpired) bool {
		return e.ReservationID == early
	}))
	s.publisher.AssertNotCalled(s.T(), "HoldExpired", mock.Anything, mock.MatchedBy(func(e event.HoldExpired) bool {
		return e.ReservationID == late
	}))

	// nothing left to release at the same instant
	s.Equal(0, s.service.Booking.Sweep(s.ctx))
}

func (s *ServiceTestSuite) TestSweepDropsSessionOnStorageConflict() {
	s.hold(s.visitor(), s.seatIDs[0])
	s.clock.Advance(11 * time.Minute)

	s.commitFails(apperrors.Conflict("expected to expire 1 reservations, expired 0"))
	s.Equal(0, s.service.Booking.Sweep(s.ctx))

	s.False(s.ledger.Has(s.session.ID))
	s.publisher.AssertNotCalled(s.T(), "HoldExpired", mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestSweepKeepsSessionOnTransientFailure() {
	s.hold(s.visitor(), s.seatIDs[0])
	s.clock.Advance(11 * time.Minute)

	s.commitFails(apperrors.Persistence("storage commit failed", errors.New("timeout")))
	s.Equal(0, s.service.Booking.Sweep(s.ctx))
	s.True(s.ledger.Has(s.session.ID))
	s.Equal(entity.SlotHeld, s.stateOf(s.seatIDs[0]))

	s.commitSucceeds(1)
	s.Equal(1, s.service.Booking.Sweep(s.ctx))
}

func (s *ServiceTestSuite) TestSweepReleasesStoredHoldsOfUnloadedSessions() {
	sessionID := uuid.New()
	stored := *s.session
	stored.ID = sessionID
	heldID := uuid.New()

	s.expiredHolds.Unset()
	s.reservations.On("FindSessionsWithExpiredHolds", mock.Anything, mock.Anything).
		Return([]uuid.UUID{sessionID, s.session.ID}, nil).Once()
	s.sessions.On("FindByID", mock.Anything, sessionID).Return(&stored, nil).Once()
	s.slots.On("FindBySessionID", mock.Anything, sessionID).Return([]*entity.ReservationSlot{
		{SessionID: sessionID, SeatID: s.seatIDs[0], State: entity.SlotHeld, ReservationID: &heldID},
		{SessionID: sessionID, SeatID: s.seatIDs[1], State: entity.SlotAvailable},
	}, nil).Once()
	s.reservations.On("FindActiveBySessionID", mock.Anything, sessionID).Return([]*entity.Reservation{
		{
			Base:      entity.Base{ID: heldID, CreatedAt: s.clock.Now()},
			SessionID: sessionID,
			VisitorID: uuid.New(),
			SeatIDs:   []uuid.UUID{s.seatIDs[0]},
			Status:    entity.ReservationStatusHeld,
			ExpiresAt: s.clock.Now().Add(10 * time.Minute),
		},
	}, nil).Once()

	s.clock.Advance(24 * time.Hour)
	s.commitSucceeds(1)
	s.Equal(1, s.service.Booking.Sweep(s.ctx))

	s.reservations.AssertCalled(s.T(), "ExpireHeld", []uuid.UUID{heldID}, s.clock.Now())
	s.slots.AssertCalled(s.T(), "Release", sessionID, heldID, []uuid.UUID{s.seatIDs[0]}, s.clock.Now())
	seats, err := s.ledger.Availability(sessionID)
	s.Require().NoError(err)
	s.Equal(entity.SlotAvailable, seats[s.seatIDs[0]])
	s.publisher.AssertCalled(s.T(), "HoldExpired", mock.Anything, mock.MatchedBy(func(e event.HoldExpired) bool {
		return e.ReservationID == heldID
	}))
}

func (s *ServiceTestSuite) TestHoldSeatsRefusedOnceSessionStarts() {
	visitorID := s.visitor()
	s.clock.Set(s.session.StartsAt)

	_, err := s.service.Booking.HoldSeats(s.ctx, s.session.ID, s.holdRequest(visitorID, s.seatIDs[0]))
	appErr := s.requireCode(err, apperrors.CodeConflict)
	s.Equal("session has started", appErr.Message)
	s.Equal(entity.SlotAvailable, s.stateOf(s.seatIDs[0]))
	s.uow.AssertNotCalled(s.T(), "Commit", mock.Anything, mock.Anything)
}
