package usecase

import (
	"context"
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

type SessionService interface {
	ScheduleSession(ctx context.Context, req *request.ScheduleSessionRequest) (*response.SessionResponse, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*response.SessionResponse, error)
	GetSeatUniverse(ctx context.Context, sessionID uuid.UUID) (*response.SeatUniverseResponse, error)
	CancelSession(ctx context.Context, sessionID uuid.UUID) (*response.CancelSessionResponse, error)

	// ArchiveFinished retires sessions that ended more than ARCHIVE_AFTER ago
	// and reports how many were archived. Failures are logged.
	ArchiveFinished(ctx context.Context) int
}

type sessionService struct {
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

func newSessionService(deps Deps, loader *sessionLoader) SessionService {
	return &sessionService{
		repo:      deps.Repo,
		uow:       deps.UoW,
		ledger:    deps.Ledger,
		loader:    loader,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		config:    deps.Config.Booking,
		log:       deps.Log.With(zap.String("service", "session")),
	}
}

func (s *sessionService) ScheduleSession(ctx context.Context, req *request.ScheduleSessionRequest) (*response.SessionResponse, error) {
	if err := utils.Validate(req); err != nil {
		s.log.Warn("Schedule session validation failed", zap.Error(err))
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, apperrors.Validation("validation failed: price must not be negative",
			map[string]any{"Price": "Must be at least 0"})
	}

	filmID, err := utils.ParseUUID(req.FilmID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid film ID format")
	}
	hallID, err := utils.ParseUUID(req.HallID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid hall ID format")
	}

	now := s.clock.Now()
	if !req.StartsAt.After(now) {
		return nil, apperrors.Validation("validation failed: starts_at must be in the future",
			map[string]any{"StartsAt": "Must be in the future"})
	}

	film, err := s.repo.Film.FindByID(ctx, filmID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load film", err)
	}
	if film == nil {
		return nil, apperrors.NotFoundWithID("film", filmID.String())
	}

	hall, err := s.repo.Hall.FindByID(ctx, hallID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load hall", err)
	}
	if hall == nil {
		return nil, apperrors.NotFoundWithID("hall", hallID.String())
	}

	seats, err := s.repo.Seat.FindByHallID(ctx, hallID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load hall seats", err)
	}
	if len(seats) == 0 {
		return nil, apperrors.InvalidInput("hall has no seats")
	}
	seatIDs := make([]uuid.UUID, len(seats))
	for i, seat := range seats {
		seatIDs[i] = seat.ID
	}

	startsAt := req.StartsAt.UTC()
	session := &entity.Session{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		FilmID:   filmID,
		HallID:   hallID,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(film.Duration() + s.config.CleaningBuffer),
		Capacity: len(seats),
		Price:    req.Price,
		Status:   entity.SessionStatusScheduled,
	}

	if err := s.uow.Commit(ctx, s.repo.Session.Schedule(session, seatIDs)); err != nil {
		s.log.Warn("Failed to schedule session",
			zap.Error(err),
			zap.String("film_id", filmID.String()),
			zap.String("hall_id", hallID.String()),
			zap.Time("starts_at", session.StartsAt),
		)
		return nil, err
	}

	s.ledger.Open(session.ID, session.StartsAt, seatIDs)

	s.log.Info("Session scheduled",
		zap.String("session_id", session.ID.String()),
		zap.String("film", film.Title),
		zap.String("hall", hall.Name),
		zap.Time("starts_at", session.StartsAt),
		zap.Time("ends_at", session.EndsAt),
		zap.Int("capacity", session.Capacity),
	)

	return response.SessionToResponse(session), nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*response.SessionResponse, error) {
	session, err := s.repo.Session.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load session", err)
	}
	if session == nil {
		return nil, apperrors.NotFoundWithID("session", sessionID.String())
	}

	sold, err := s.repo.Ticket.CountBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Persistence("failed to count tickets", err)
	}

	resp := response.SessionToResponse(session)
	resp.TicketsSold = sold
	return resp, nil
}

func (s *sessionService) GetSeatUniverse(ctx context.Context, sessionID uuid.UUID) (*response.SeatUniverseResponse, error) {
	if err := s.loader.ensure(ctx, sessionID); err != nil {
		return nil, err
	}
	universe, err := s.ledger.Universe(sessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.Session.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load session", err)
	}
	if session == nil {
		return nil, apperrors.NotFoundWithID("session", sessionID.String())
	}
	seats, err := s.repo.Seat.FindByHallID(ctx, session.HallID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load hall seats", err)
	}
	byID := make(map[uuid.UUID]*entity.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}

	resp := &response.SeatUniverseResponse{
		SessionID: sessionID.String(),
		Seats:     make([]response.SeatResponse, 0, len(universe)),
	}
	for _, id := range universe {
		if seat, ok := byID[id]; ok {
			resp.Seats = append(resp.Seats, response.SeatToResponse(seat))
			continue
		}
		resp.Seats = append(resp.Seats, response.SeatResponse{ID: id.String()})
	}
	return resp, nil
}

func (s *sessionService) CancelSession(ctx context.Context, sessionID uuid.UUID) (*response.CancelSessionResponse, error) {
	if err := s.loader.ensure(ctx, sessionID); err != nil {
		return nil, err
	}

	session, err := s.repo.Session.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load session", err)
	}
	if session == nil {
		return nil, apperrors.NotFoundWithID("session", sessionID.String())
	}

	now := s.clock.Now()
	flagRefunds := s.config.RefundPolicy == utils.RefundPolicyFull

	result, err := s.ledger.CloseSession(ctx, sessionID, now, flagRefunds,
		func(ctx context.Context, expired, booked []*entity.Reservation) error {
			mutations := []database.Mutation{s.repo.Session.MarkCancelled(sessionID, now)}
			for _, r := range expired {
				mutations = append(mutations, s.repo.ReservationSlot.Release(sessionID, r.ID, r.SeatIDs, now))
			}
			mutations = append(mutations, s.repo.Reservation.ExpireHeld(reservationIDs(expired), now))
			if flagRefunds {
				mutations = append(mutations, s.repo.Reservation.FlagRefunds(reservationIDs(booked), now))
			}
			return s.uow.Commit(ctx, mutations...)
		})
	if err != nil {
		s.log.Warn("Failed to cancel session", zap.Error(err), zap.String("session_id", sessionID.String()))
		return nil, err
	}

	resp := &response.CancelSessionResponse{
		SessionID:        sessionID.String(),
		ExpiredHolds:     []string{},
		RefundRequested:  []string{},
		AlreadyCancelled: result.AlreadyClosed,
	}
	if result.AlreadyClosed {
		return resp, nil
	}

	s.invalidate(ctx, sessionID)

	for _, r := range result.Expired {
		resp.ExpiredHolds = append(resp.ExpiredHolds, r.ID.String())
		publishHoldExpired(ctx, s.publisher, s.log, r, now)
	}
	for _, r := range result.Booked {
		if !r.RefundRequested {
			continue
		}
		resp.RefundRequested = append(resp.RefundRequested, r.ID.String())
		if err := s.publisher.RefundRequested(ctx, event.RefundRequested{
			ReservationID: r.ID,
			SessionID:     sessionID,
			VisitorID:     r.VisitorID,
			Amount:        session.Price.Mul(decimal.NewFromInt(int64(len(r.SeatIDs)))),
			RequestedAt:   now,
		}); err != nil {
			s.log.Error("Failed to publish refund request",
				zap.Error(err),
				zap.String("reservation_id", r.ID.String()),
			)
		}
	}

	s.log.Info("Session cancelled",
		zap.String("session_id", sessionID.String()),
		zap.Int("expired_holds", len(resp.ExpiredHolds)),
		zap.Int("refunds_requested", len(resp.RefundRequested)),
	)

	return resp, nil
}

func (s *sessionService) ArchiveFinished(ctx context.Context) int {
	now := s.clock.Now()
	cutoff := now.Add(-s.config.ArchiveAfter)

	sessions, err := s.repo.Session.FindEndedBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("Failed to list finished sessions", zap.Error(err), zap.Time("cutoff", cutoff))
		return 0
	}

	archived := 0
	for _, session := range sessions {
		if err := s.archive(ctx, session, now); err != nil {
			s.log.Error("Failed to archive session",
				zap.Error(err),
				zap.String("session_id", session.ID.String()),
			)
			continue
		}
		archived++
	}

	if archived > 0 {
		s.log.Info("Finished sessions archived", zap.Int("count", archived), zap.Time("cutoff", cutoff))
	}
	return archived
}

func (s *sessionService) archive(ctx context.Context, session *entity.Session, now time.Time) error {
	if err := s.loader.ensure(ctx, session.ID); err != nil {
		return err
	}

	expired, err := s.ledger.Archive(ctx, session.ID, now, func(ctx context.Context, expired []*entity.Reservation) error {
		return s.uow.Commit(ctx,
			s.repo.Session.MarkCompleted(session.ID, now),
			s.repo.Reservation.ExpireHeld(reservationIDs(expired), now),
			s.repo.ReservationSlot.DeleteBySessionID(session.ID),
		)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, session.ID)
	for _, r := range expired {
		publishHoldExpired(ctx, s.publisher, s.log, r, now)
	}
	return nil
}

func (s *sessionService) invalidate(ctx context.Context, sessionID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, sessionID); err != nil {
		s.log.Warn("Failed to invalidate availability cache",
			zap.Error(err),
			zap.String("session_id", sessionID.String()),
		)
	}
}

func reservationIDs(rs []*entity.Reservation) []uuid.UUID {
	ids := make([]uuid.UUID, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

func publishHoldExpired(ctx context.Context, p event.Publisher, log *zap.Logger, r *entity.Reservation, at time.Time) {
	if err := p.HoldExpired(ctx, event.HoldExpired{
		ReservationID: r.ID,
		SessionID:     r.SessionID,
		VisitorID:     r.VisitorID,
		SeatIDs:       r.SeatIDs,
		ExpiredAt:     at,
	}); err != nil {
		log.Error("Failed to publish hold expiry",
			zap.Error(err),
			zap.String("reservation_id", r.ID.String()),
		)
	}
}
