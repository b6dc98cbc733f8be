package ledger

import (
	"context"
	"sync"
	"time"

	"cinema-ticketing/internal/data/entity"
	apperrors "cinema-ticketing/pkg/errors"

	"github.com/google/uuid"
)

type slot struct {
	state         entity.SlotState
	reservationID uuid.UUID
}

// book is the contention state of one session.
//
// lock serializes every state-changing operation on the session and is held
// across the durable commit. mu only guards memory so that display reads can
// run while an operation holds lock; writers always hold both.
type book struct {
	lock chan struct{}

	mu           sync.RWMutex
	sessionID    uuid.UUID
	seats        []uuid.UUID
	startsAt     time.Time
	slots        map[uuid.UUID]*slot
	reservations map[uuid.UUID]*entity.Reservation
	booked       int
	closed       bool
	dropped      bool
}

func newBook(sessionID uuid.UUID, startsAt time.Time, seats []uuid.UUID) *book {
	b := &book{
		lock:         make(chan struct{}, 1),
		sessionID:    sessionID,
		seats:        append([]uuid.UUID(nil), seats...),
		startsAt:     startsAt,
		slots:        make(map[uuid.UUID]*slot, len(seats)),
		reservations: make(map[uuid.UUID]*entity.Reservation),
	}
	for _, seatID := range seats {
		b.slots[seatID] = &slot{state: entity.SlotAvailable}
	}
	return b
}

func (b *book) capacity() int {
	return len(b.seats)
}

// acquire takes the session lock, waiting at most wait. It never waits for a
// seat to become free, only for another operation on the session to finish.
func (b *book) acquire(ctx context.Context, wait time.Duration) error {
	select {
	case b.lock <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case b.lock <- struct{}{}:
		return nil
	case <-timer.C:
		return apperrors.Busy("session is busy, retry shortly")
	case <-ctx.Done():
		busy := apperrors.Busy("session is busy, retry shortly")
		busy.Err = ctx.Err()
		return busy
	}
}

func (b *book) release() {
	<-b.lock
}

// hold marks every seat of r as held by r. Caller holds lock and mu.
func (b *book) hold(r *entity.Reservation) {
	for _, seatID := range r.SeatIDs {
		s := b.slots[seatID]
		s.state = entity.SlotHeld
		s.reservationID = r.ID
	}
	b.reservations[r.ID] = r
}

// free returns every seat of r to available and forgets r.
func (b *book) free(r *entity.Reservation) {
	for _, seatID := range r.SeatIDs {
		s := b.slots[seatID]
		if s.reservationID == r.ID {
			s.state = entity.SlotAvailable
			s.reservationID = uuid.Nil
		}
	}
	delete(b.reservations, r.ID)
}

func (b *book) setState(r *entity.Reservation, state entity.SlotState) {
	for _, seatID := range r.SeatIDs {
		b.slots[seatID].state = state
	}
}

func (b *book) snapshot() map[uuid.UUID]entity.SlotState {
	out := make(map[uuid.UUID]entity.SlotState, len(b.slots))
	for seatID, s := range b.slots {
		out[seatID] = s.state
	}
	return out
}
