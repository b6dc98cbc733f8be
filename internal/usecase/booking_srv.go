package usecase

import (
	"context"
	"fmt"
	"time"

	"cinema-ticketing/internal/cache"
	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/internal/data/repository"
	"cinema-ticketing/internal/dto/request"
	"cinema-ticketing/internal/dto/response"
	"cinema-ticketing/internal/event"
	"cinema-ticketing/internal/ledger"
	"cinema-ticketing/pkg/clock"
	"cinema-ticketing/pkg/database"
	apperrors "cinema-ticketing/pkg/errors"
	"cinema-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BookingService interface {
	HoldSeats(ctx context.Context, sessionID uuid.UUID, req *request.HoldSeatsRequest) (*response.HoldResponse, error)
	ConfirmBooking(ctx context.Context, reservationID uuid.UUID) (*response.BookingResponse, error)
	CancelHold(ctx context.Context, reservationID uuid.UUID) error
	GetAvailability(ctx context.Context, sessionID uuid.UUID) (*response.AvailabilityResponse, error)
	GetReservation(ctx context.Context, reservationID uuid.UUID) (*response.ReservationResponse, error)

	// Sweep releases expired holds and reports how many were released.
	// Failures are logged and retried on the next call.
	Sweep(ctx context.Context) int
}

type bookingService struct {
	repo      *repository.Repository
	uow       database.UnitOfWork
	ledger    *ledger.Ledger
	loader    *sessionLoader
	cache     cache.AvailabilityCache
	publisher event.Publisher
	clock     clock.Clock
	config    utils.BookingConfig
	log       *zap.Logger
}

func newBookingService(deps Deps, loader *sessionLoader) BookingService {
	return &bookingService{
		repo:      deps.Repo,
		uow:       deps.UoW,
		ledger:    deps.Ledger,
		loader:    loader,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		config:    deps.Config.Booking,
		log:       deps.Log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) HoldSeats(ctx context.Context, sessionID uuid.UUID, req *request.HoldSeatsRequest) (*response.HoldResponse, error) {
	if err := utils.Validate(req); err != nil {
		s.log.Warn("Hold seats validation failed", zap.Error(err))
		return nil, err
	}
	if len(req.SeatIDs) > s.config.MaxSeatsPerHold {
		return nil, apperrors.Validation(
			fmt.Sprintf("validation failed: at most %d seats per hold", s.config.MaxSeatsPerHold),
			map[string]any{"SeatIDs": fmt.Sprintf("Maximum length is %d", s.config.MaxSeatsPerHold)},
		)
	}

	visitorID, err := utils.ParseUUID(req.VisitorID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid visitor ID format")
	}
	seatIDs, err := utils.ParseUUIDs(req.SeatIDs)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid seat ID format")
	}

	exists, err := s.repo.Visitor.Exists(ctx, visitorID)
	if err != nil {
		return nil, apperrors.Persistence("failed to check visitor", err)
	}
	if !exists {
		return nil, apperrors.NotFoundWithID("visitor", visitorID.String())
	}

	if err := s.loader.ensure(ctx, sessionID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	reservation, err := s.ledger.TryHold(ctx, ledger.HoldRequest{
		SessionID: sessionID,
		VisitorID: visitorID,
		SeatIDs:   seatIDs,
		Now:       now,
		Duration:  s.config.HoldDuration,
	}, func(ctx context.Context, r *entity.Reservation) error {
		return s.uow.Commit(ctx,
			s.repo.Reservation.Create(r),
			s.repo.ReservationSlot.Hold(r.SessionID, r.ID, r.SeatIDs, now),
		)
	})
	if err != nil {
		s.log.Warn("Hold rejected",
			zap.Error(err),
			zap.String("session_id", sessionID.String()),
			zap.String("visitor_id", visitorID.String()),
			zap.Int("seat_count", len(seatIDs)),
		)
		return nil, err
	}

	s.invalidate(ctx, sessionID)

	s.log.Info("Seats held",
		zap.String("reservation_id", reservation.ID.String()),
		zap.String("session_id", sessionID.String()),
		zap.String("visitor_id", visitorID.String()),
		zap.Int("seat_count", len(seatIDs)),
		zap.Time("expires_at", reservation.ExpiresAt),
	)

	resp := &response.HoldResponse{
		ReservationID: reservation.ID.String(),
		SessionID:     sessionID.String(),
		SeatIDs:       make([]string, len(reservation.SeatIDs)),
		ExpiresAt:     reservation.ExpiresAt,
	}
	for i, id := range reservation.SeatIDs {
		resp.SeatIDs[i] = id.String()
	}
	return resp, nil
}

func (s *bookingService) ConfirmBooking(ctx context.Context, reservationID uuid.UUID) (*response.BookingResponse, error) {
	stored, err := s.loader.resolve(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if err := terminalError(stored); err != nil {
		return nil, err
	}

	current, err := s.ledger.Get(reservationID)
	if err != nil {
		return nil, s.explainMissing(ctx, reservationID, err)
	}
	session, err := s.repo.Session.FindByID(ctx, current.SessionID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load session", err)
	}
	if session == nil {
		return nil, apperrors.NotFoundWithID("session", current.SessionID.String())
	}

	now := s.clock.Now()
	var tickets []*entity.Ticket

	confirmed, err := s.ledger.Confirm(ctx, reservationID, now, func(ctx context.Context, r *entity.Reservation) error {
		issued, err := s.issueTickets(r, session.Price, now)
		if err != nil {
			return err
		}
		if err := s.uow.Commit(ctx,
			s.repo.ReservationSlot.Book(r.SessionID, r.ID, r.SeatIDs, now),
			s.repo.Reservation.Transition(r, entity.ReservationStatusHeld),
			s.repo.Ticket.CreateBatch(issued),
		); err != nil {
			return err
		}
		tickets = issued
		return nil
	})
	if err != nil {
		err = s.explainMissing(ctx, reservationID, err)
		s.log.Warn("Confirm rejected",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return nil, err
	}

	s.invalidate(ctx, confirmed.SessionID)

	total := session.Price.Mul(decimal.NewFromInt(int64(len(tickets))))
	resp := &response.BookingResponse{
		ReservationID: confirmed.ID.String(),
		SessionID:     confirmed.SessionID.String(),
		VisitorID:     confirmed.VisitorID.String(),
		Tickets:       make([]response.TicketResponse, len(tickets)),
		Total:         total,
		ConfirmedAt:   now,
	}
	issued := make([]event.TicketIssued, len(tickets))
	for i, t := range tickets {
		resp.Tickets[i] = response.TicketToResponse(t)
		issued[i] = event.TicketIssued{TicketID: t.ID, SeatID: t.SeatID, Code: t.Code, Price: t.Price}
	}

	if err := s.publisher.BookingConfirmed(ctx, event.BookingConfirmed{
		ReservationID: confirmed.ID,
		SessionID:     confirmed.SessionID,
		VisitorID:     confirmed.VisitorID,
		Tickets:       issued,
		Total:         total,
		ConfirmedAt:   now,
	}); err != nil {
		s.log.Error("Failed to publish booking confirmation",
			zap.Error(err),
			zap.String("reservation_id", confirmed.ID.String()),
		)
	}

	s.log.Info("Booking confirmed",
		zap.String("reservation_id", confirmed.ID.String()),
		zap.String("session_id", confirmed.SessionID.String()),
		zap.Int("tickets", len(tickets)),
		zap.String("total", total.StringFixed(2)),
	)

	return resp, nil
}

func (s *bookingService) issueTickets(r *entity.Reservation, price decimal.Decimal, now time.Time) ([]*entity.Ticket, error) {
	key := []byte(s.config.TicketSigningKey)
	tickets := make([]*entity.Ticket, len(r.SeatIDs))
	for i, seatID := range r.SeatIDs {
		id := uuid.New()
		code, err := utils.TicketCode(key, id, r.SessionID, seatID)
		if err != nil {
			return nil, apperrors.Internal("failed to sign ticket", err)
		}
		tickets[i] = &entity.Ticket{
			ID:            id,
			ReservationID: r.ID,
			SessionID:     r.SessionID,
			SeatID:        seatID,
			VisitorID:     r.VisitorID,
			Price:         price,
			Code:          code,
			IssuedAt:      now,
		}
	}
	return tickets, nil
}

func (s *bookingService) CancelHold(ctx context.Context, reservationID uuid.UUID) error {
	stored, err := s.loader.resolve(ctx, reservationID)
	if err != nil {
		return err
	}
	if err := terminalError(stored); err != nil {
		return err
	}

	now := s.clock.Now()
	cancelled, err := s.ledger.Cancel(ctx, reservationID, now, func(ctx context.Context, r *entity.Reservation) error {
		return s.uow.Commit(ctx,
			s.repo.ReservationSlot.Release(r.SessionID, r.ID, r.SeatIDs, now),
			s.repo.Reservation.Transition(r, entity.ReservationStatusHeld),
		)
	})
	if err != nil {
		s.log.Warn("Cancel rejected",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return err
	}

	s.invalidate(ctx, cancelled.SessionID)

	s.log.Info("Hold cancelled",
		zap.String("reservation_id", reservationID.String()),
		zap.String("session_id", cancelled.SessionID.String()),
	)
	return nil
}

func (s *bookingService) GetAvailability(ctx context.Context, sessionID uuid.UUID) (*response.AvailabilityResponse, error) {
	seats, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		s.log.Warn("Availability cache read failed", zap.Error(err), zap.String("session_id", sessionID.String()))
	}

	if seats == nil {
		if err := s.loader.ensure(ctx, sessionID); err != nil {
			return nil, err
		}
		seats, err = s.ledger.Availability(sessionID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, sessionID, seats); err != nil {
			s.log.Warn("Availability cache write failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		}
	}

	resp := &response.AvailabilityResponse{
		SessionID: sessionID.String(),
		Seats:     make(map[string]entity.SlotState, len(seats)),
	}
	for id, state := range seats {
		resp.Seats[id.String()] = state
		switch state {
		case entity.SlotAvailable:
			resp.Available++
		case entity.SlotHeld:
			resp.Held++
		case entity.SlotBooked:
			resp.Booked++
		}
	}
	return resp, nil
}

func (s *bookingService) GetReservation(ctx context.Context, reservationID uuid.UUID) (*response.ReservationResponse, error) {
	reservation, err := s.repo.Reservation.FindByID(ctx, reservationID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load reservation", err)
	}
	if reservation == nil {
		return nil, apperrors.NotFoundWithID("reservation", reservationID.String())
	}

	var tickets []*entity.Ticket
	if reservation.Status == entity.ReservationStatusBooked {
		tickets, err = s.repo.Ticket.FindByReservationID(ctx, reservationID)
		if err != nil {
			return nil, apperrors.Persistence("failed to load tickets", err)
		}
	}

	return response.ReservationToResponse(reservation, tickets), nil
}

func (s *bookingService) Sweep(ctx context.Context) int {
	now := s.clock.Now()
	s.loadExpired(ctx, now)
	var stale []uuid.UUID

	released, err := s.ledger.Sweep(ctx, now, func(ctx context.Context, sessionID uuid.UUID, expired []*entity.Reservation) error {
		mutations := make([]database.Mutation, 0, len(expired)+1)
		for _, r := range expired {
			mutations = append(mutations, s.repo.ReservationSlot.Release(sessionID, r.ID, r.SeatIDs, now))
		}
		mutations = append(mutations, s.repo.Reservation.ExpireHeld(reservationIDs(expired), now))

		err := s.uow.Commit(ctx, mutations...)
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			stale = append(stale, sessionID)
		}
		return err
	})
	if err != nil {
		s.log.Error("Sweep incomplete", zap.Error(err))
	}

	// Storage disagreed with memory for these sessions. Dropping them makes
	// the next request reload from the store.
	for _, sessionID := range stale {
		if err := s.ledger.Drop(ctx, sessionID); err != nil {
			s.log.Error("Failed to drop stale session", zap.Error(err), zap.String("session_id", sessionID.String()))
			continue
		}
		s.invalidate(ctx, sessionID)
		s.log.Warn("Session resynced from storage", zap.String("session_id", sessionID.String()))
	}

	touched := make(map[uuid.UUID]struct{})
	for _, r := range released {
		touched[r.SessionID] = struct{}{}
		publishHoldExpired(ctx, s.publisher, s.log, r, now)
	}
	for sessionID := range touched {
		s.invalidate(ctx, sessionID)
	}

	if len(released) > 0 {
		s.log.Info("Expired holds released",
			zap.Int("reservations", len(released)),
			zap.Int("sessions", len(touched)),
		)
	}
	return len(released)
}

// loadExpired brings sessions with expired holds in storage into the ledger,
// so the sweep also releases holds nobody has touched since a restart.
func (s *bookingService) loadExpired(ctx context.Context, now time.Time) {
	sessionIDs, err := s.repo.Reservation.FindSessionsWithExpiredHolds(ctx, now)
	if err != nil {
		s.log.Error("Failed to list sessions with expired holds", zap.Error(err))
		return
	}
	for _, sessionID := range sessionIDs {
		if s.ledger.Has(sessionID) {
			continue
		}
		if err := s.loader.ensure(ctx, sessionID); err != nil {
			s.log.Warn("Failed to load session for sweep",
				zap.Error(err),
				zap.String("session_id", sessionID.String()),
			)
		}
	}
}

// explainMissing turns a ledger miss into HOLD_EXPIRED when the store says
// the hold was swept.
func (s *bookingService) explainMissing(ctx context.Context, reservationID uuid.UUID, err error) error {
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return err
	}
	stored, findErr := s.repo.Reservation.FindByID(ctx, reservationID)
	if findErr != nil || stored == nil {
		return err
	}
	if terminal := terminalError(stored); terminal != nil {
		return terminal
	}
	return err
}

func (s *bookingService) invalidate(ctx context.Context, sessionID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, sessionID); err != nil {
		s.log.Warn("Failed to invalidate availability cache",
			zap.Error(err),
			zap.String("session_id", sessionID.String()),
		)
	}
}

// terminalError reports why a stored reservation can no longer change.
func terminalError(stored *entity.Reservation) error {
	if stored == nil {
		return nil
	}
	switch stored.Status {
	case entity.ReservationStatusExpired:
		return apperrors.Expired("hold expired, please reselect seats").
			WithDetails(map[string]any{"expires_at": stored.ExpiresAt})
	case entity.ReservationStatusCancelled:
		return apperrors.Conflict("reservation was cancelled")
	}
	return nil
}
