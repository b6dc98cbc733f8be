package ledger

import (
	"context"
	"fmt"
	"time"

	"cinema-ticketing/internal/data/entity"
	apperrors "cinema-ticketing/pkg/errors"

	"github.com/google/uuid"
)

type HoldRequest struct {
	// ReservationID is generated when left nil.
	ReservationID uuid.UUID
	SessionID     uuid.UUID
	VisitorID     uuid.UUID
	SeatIDs       []uuid.UUID
	Now           time.Time
	Duration      time.Duration
}

// TryHold holds every requested seat or none of them. When any seat is not
// available it fails with a conflict naming exactly those seats.
func (l *Ledger) TryHold(ctx context.Context, req HoldRequest, commit CommitFunc) (*entity.Reservation, error) {
	if len(req.SeatIDs) == 0 {
		return nil, apperrors.InvalidInput("at least one seat is required")
	}
	if req.Duration <= 0 {
		return nil, apperrors.InvalidInput("hold duration must be positive")
	}

	b, err := l.lookup(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := l.enter(ctx, b); err != nil {
		return nil, err
	}
	defer b.release()

	if b.closed {
		return nil, apperrors.Conflict("session is cancelled")
	}
	if !b.startsAt.IsZero() && !req.Now.Before(b.startsAt) {
		return nil, apperrors.Conflict("session has started")
	}

	seen := make(map[uuid.UUID]struct{}, len(req.SeatIDs))
	var unavailable []uuid.UUID
	for _, seatID := range req.SeatIDs {
		if _, dup := seen[seatID]; dup {
			return nil, apperrors.InvalidInput(fmt.Sprintf("seat %s requested more than once", seatID))
		}
		seen[seatID] = struct{}{}

		s, ok := b.slots[seatID]
		if !ok {
			return nil, apperrors.NotFoundWithID("seat", seatID.String())
		}
		if s.state != entity.SlotAvailable {
			unavailable = append(unavailable, seatID)
		}
	}
	if len(unavailable) > 0 {
		return nil, apperrors.SeatConflict(unavailable)
	}

	id := req.ReservationID
	if id == uuid.Nil {
		id = uuid.New()
	}

	if err := l.visitors.admit(l.policy, req.VisitorID, req.SessionID, id); err != nil {
		return nil, err
	}

	r := &entity.Reservation{
		Base: entity.Base{
			ID:        id,
			CreatedAt: req.Now,
			UpdatedAt: req.Now,
		},
		SessionID: req.SessionID,
		VisitorID: req.VisitorID,
		SeatIDs:   append([]uuid.UUID(nil), req.SeatIDs...),
		Status:    entity.ReservationStatusHeld,
		ExpiresAt: req.Now.Add(req.Duration),
	}

	b.mu.Lock()
	b.hold(r)
	b.mu.Unlock()

	if commit != nil {
		if err := commit(ctx, r.Clone()); err != nil {
			b.mu.Lock()
			b.free(r)
			b.mu.Unlock()
			l.visitors.forget(r.VisitorID, r.ID)
			return nil, err
		}
	}

	l.setOwner(r.ID, r.SessionID)
	return r.Clone(), nil
}

// Confirm turns a held reservation into a booked one. It fails with
// HOLD_EXPIRED once now is past the expiry even if no sweep has run yet.
// A failed commit puts the reservation back to held.
func (l *Ledger) Confirm(ctx context.Context, reservationID uuid.UUID, now time.Time, commit CommitFunc) (*entity.Reservation, error) {
	b, err := l.owner(reservationID)
	if err != nil {
		return nil, err
	}
	if err := l.enter(ctx, b); err != nil {
		return nil, err
	}
	defer b.release()

	r, ok := b.reservations[reservationID]
	if !ok {
		// Swept or cancelled while waiting for the lock.
		return nil, apperrors.NotFoundWithID("reservation", reservationID.String())
	}

	switch {
	case r.Status == entity.ReservationStatusBooked:
		return nil, apperrors.Conflict("reservation is already booked")
	case r.IsExpired(now):
		return nil, apperrors.Expired("hold expired, please reselect seats").
			WithDetails(map[string]any{"expires_at": r.ExpiresAt})
	case b.booked+len(r.SeatIDs) > b.capacity():
		return nil, apperrors.Capacity(fmt.Sprintf("session %s has no capacity for %d more tickets", b.sessionID, len(r.SeatIDs)))
	}

	prev := r.Clone()

	b.mu.Lock()
	b.setState(r, entity.SlotBooked)
	r.Status = entity.ReservationStatusBooked
	r.ConfirmedAt = &now
	r.UpdatedAt = now
	b.booked += len(r.SeatIDs)
	b.mu.Unlock()

	if commit != nil {
		if err := commit(ctx, r.Clone()); err != nil {
			b.mu.Lock()
			b.setState(r, entity.SlotHeld)
			*r = *prev
			b.booked -= len(r.SeatIDs)
			b.mu.Unlock()
			return nil, err
		}
	}

	l.visitors.forget(r.VisitorID, r.ID)
	return r.Clone(), nil
}

// Cancel releases a held reservation. Booked reservations cannot be cancelled.
func (l *Ledger) Cancel(ctx context.Context, reservationID uuid.UUID, now time.Time, commit CommitFunc) (*entity.Reservation, error) {
	b, err := l.owner(reservationID)
	if err != nil {
		return nil, err
	}
	if err := l.enter(ctx, b); err != nil {
		return nil, err
	}
	defer b.release()

	r, ok := b.reservations[reservationID]
	if !ok {
		return nil, apperrors.NotFoundWithID("reservation", reservationID.String())
	}
	if r.Status != entity.ReservationStatusHeld {
		return nil, apperrors.Conflict("only held reservations can be cancelled")
	}

	b.mu.Lock()
	b.free(r)
	b.mu.Unlock()

	cancelled := r.Clone()
	cancelled.Status = entity.ReservationStatusCancelled
	cancelled.UpdatedAt = now

	if commit != nil {
		if err := commit(ctx, cancelled.Clone()); err != nil {
			b.mu.Lock()
			b.hold(r)
			b.mu.Unlock()
			return nil, err
		}
	}

	l.clearOwner(r.ID)
	l.visitors.forget(r.VisitorID, r.ID)
	return cancelled, nil
}
