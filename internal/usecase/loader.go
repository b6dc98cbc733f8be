package usecase

import (
	"context"
	"time"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/internal/data/repository"
	"cinema-ticketing/internal/ledger"
	apperrors "cinema-ticketing/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// loadTimeout bounds a shared load, which outlives any single caller.
const loadTimeout = 5 * time.Second

// sessionLoader brings sessions into the ledger on first use. Concurrent
// loads of the same session share one trip to the store.
type sessionLoader struct {
	repo   *repository.Repository
	ledger *ledger.Ledger
	group  singleflight.Group
	log    *zap.Logger
}

func newSessionLoader(repo *repository.Repository, l *ledger.Ledger, log *zap.Logger) *sessionLoader {
	return &sessionLoader{
		repo:   repo,
		ledger: l,
		log:    log.With(zap.String("component", "session_loader")),
	}
}

func (l *sessionLoader) ensure(ctx context.Context, sessionID uuid.UUID) error {
	if l.ledger.Has(sessionID) {
		return nil
	}

	_, err, _ := l.group.Do(sessionID.String(), func() (any, error) {
		if l.ledger.Has(sessionID) {
			return nil, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return nil, l.load(loadCtx, sessionID)
	})
	return err
}

func (l *sessionLoader) load(ctx context.Context, sessionID uuid.UUID) error {
	session, err := l.repo.Session.FindByID(ctx, sessionID)
	if err != nil {
		return apperrors.Persistence("failed to load session", err)
	}
	if session == nil {
		return apperrors.NotFoundWithID("session", sessionID.String())
	}
	if session.Status == entity.SessionStatusCompleted {
		return apperrors.Conflict("session has ended")
	}

	slots, err := l.repo.ReservationSlot.FindBySessionID(ctx, sessionID)
	if err != nil {
		return apperrors.Persistence("failed to load seat slots", err)
	}
	reservations, err := l.repo.Reservation.FindActiveBySessionID(ctx, sessionID)
	if err != nil {
		return apperrors.Persistence("failed to load reservations", err)
	}

	restored := l.ledger.Restore(ledger.Snapshot{
		SessionID:    sessionID,
		StartsAt:     session.StartsAt,
		Closed:       session.Status == entity.SessionStatusCancelled,
		Slots:        slots,
		Reservations: reservations,
	})
	if restored {
		l.log.Info("Session loaded into ledger",
			zap.String("session_id", sessionID.String()),
			zap.Int("seats", len(slots)),
			zap.Int("reservations", len(reservations)),
		)
	}
	return nil
}

// resolve makes sure the session owning a reservation is loaded. It returns
// the stored reservation when it had to look it up, or nil when the ledger
// already knew it.
func (l *sessionLoader) resolve(ctx context.Context, reservationID uuid.UUID) (*entity.Reservation, error) {
	if _, err := l.ledger.Get(reservationID); err == nil {
		return nil, nil
	}

	stored, err := l.repo.Reservation.FindByID(ctx, reservationID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load reservation", err)
	}
	if stored == nil {
		return nil, apperrors.NotFoundWithID("reservation", reservationID.String())
	}

	switch stored.Status {
	case entity.ReservationStatusHeld, entity.ReservationStatusBooked:
		if err := l.ensure(ctx, stored.SessionID); err != nil {
			return nil, err
		}
	}
	return stored, nil
}
