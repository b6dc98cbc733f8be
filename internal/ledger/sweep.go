package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cinema-ticketing/internal/data/entity"

	"github.com/google/uuid"
)

// Sweep releases every held reservation with expiresAt <= now. Sessions are
// swept one at a time under their own lock; a session whose commit fails is
// left untouched and reported, the rest still proceed. Sweeping twice at the
// same instant releases nothing the second time.
func (l *Ledger) Sweep(ctx context.Context, now time.Time, commit SweepFunc) ([]*entity.Reservation, error) {
	var (
		released []*entity.Reservation
		errs     []error
	)

	for _, sessionID := range l.Sessions() {
		b, err := l.lookup(sessionID)
		if err != nil {
			continue
		}

		expired, err := l.sweepBook(ctx, b, now, commit)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep session %s: %w", sessionID, err))
			continue
		}
		released = append(released, expired...)
	}

	return released, errors.Join(errs...)
}

func (l *Ledger) sweepBook(ctx context.Context, b *book, now time.Time, commit SweepFunc) ([]*entity.Reservation, error) {
	if err := l.enter(ctx, b); err != nil {
		return nil, err
	}
	defer b.release()

	var due []*entity.Reservation
	for _, r := range b.reservations {
		if r.Status == entity.ReservationStatusHeld && !r.ExpiresAt.After(now) {
			due = append(due, r)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })

	b.mu.Lock()
	for _, r := range due {
		b.free(r)
	}
	b.mu.Unlock()

	expired := markAll(due, entity.ReservationStatusExpired, now)

	if commit != nil {
		if err := commit(ctx, b.sessionID, expired); err != nil {
			b.mu.Lock()
			for _, r := range due {
				b.hold(r)
			}
			b.mu.Unlock()
			return nil, err
		}
	}

	l.forgetHolds(due)
	return expired, nil
}

type CloseResult struct {
	Expired []*entity.Reservation
	Booked  []*entity.Reservation
	// AlreadyClosed is set when the session had been closed before.
	AlreadyClosed bool
}

// CloseSession stops all further holds on a session. Held reservations are
// expired on the spot; booked ones keep their seats and, when flagRefunds is
// set, are marked for refund.
func (l *Ledger) CloseSession(ctx context.Context, sessionID uuid.UUID, now time.Time, flagRefunds bool, commit CloseFunc) (*CloseResult, error) {
	b, err := l.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if err := l.enter(ctx, b); err != nil {
		return nil, err
	}
	defer b.release()

	if b.closed {
		return &CloseResult{AlreadyClosed: true}, nil
	}

	var held, booked []*entity.Reservation
	for _, r := range b.reservations {
		switch r.Status {
		case entity.ReservationStatusHeld:
			held = append(held, r)
		case entity.ReservationStatusBooked:
			booked = append(booked, r)
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i].CreatedAt.Before(held[j].CreatedAt) })
	sort.Slice(booked, func(i, j int) bool { return booked[i].CreatedAt.Before(booked[j].CreatedAt) })

	b.mu.Lock()
	for _, r := range held {
		b.free(r)
	}
	b.closed = true
	b.mu.Unlock()

	result := &CloseResult{
		Expired: markAll(held, entity.ReservationStatusExpired, now),
		Booked:  make([]*entity.Reservation, len(booked)),
	}
	for i, r := range booked {
		c := r.Clone()
		c.RefundRequested = flagRefunds
		result.Booked[i] = c
	}

	if commit != nil {
		if err := commit(ctx, result.Expired, result.Booked); err != nil {
			b.mu.Lock()
			for _, r := range held {
				b.hold(r)
			}
			b.closed = false
			b.mu.Unlock()
			return nil, err
		}
	}

	if flagRefunds {
		b.mu.Lock()
		for _, r := range booked {
			r.RefundRequested = true
		}
		b.mu.Unlock()
	}

	l.forgetHolds(held)
	return result, nil
}

// Archive retires a finished session. Its remaining holds are expired by
// commit, which runs under the session lock, and the book is dropped once
// commit succeeds. Operations waiting on the lock then fail with not found.
// On a commit error the session stays loaded and untouched.
func (l *Ledger) Archive(ctx context.Context, sessionID uuid.UUID, now time.Time, commit ArchiveFunc) ([]*entity.Reservation, error) {
	b, err := l.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if err := l.enter(ctx, b); err != nil {
		return nil, err
	}
	defer b.release()

	b.mu.RLock()
	var held []*entity.Reservation
	for _, r := range b.reservations {
		if r.Status == entity.ReservationStatusHeld {
			held = append(held, r)
		}
	}
	b.mu.RUnlock()
	sort.Slice(held, func(i, j int) bool { return held[i].CreatedAt.Before(held[j].CreatedAt) })

	expired := markAll(held, entity.ReservationStatusExpired, now)
	if commit != nil {
		if err := commit(ctx, expired); err != nil {
			return nil, err
		}
	}

	l.evict(b)
	return expired, nil
}

func (l *Ledger) forgetHolds(rs []*entity.Reservation) {
	for _, r := range rs {
		l.clearOwner(r.ID)
		l.visitors.forget(r.VisitorID, r.ID)
	}
}

func markAll(rs []*entity.Reservation, status entity.ReservationStatus, now time.Time) []*entity.Reservation {
	out := make([]*entity.Reservation, len(rs))
	for i, r := range rs {
		c := r.Clone()
		c.Status = status
		c.UpdatedAt = now
		out[i] = c
	}
	return out
}
