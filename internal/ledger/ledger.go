// Package ledger holds the per-session seat contention state.
//
// Every state-changing operation on a session runs under that session's own
// lock, and the durable commit for the change runs inside the same critical
// section. If the commit fails the in-memory change is undone before the lock
// is released, so memory never runs ahead of storage.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"cinema-ticketing/internal/data/entity"
	apperrors "cinema-ticketing/pkg/errors"

	"github.com/google/uuid"
)

const defaultLockWait = 2 * time.Second

// CommitFunc persists a transition that has already been applied in memory.
// A non-nil error undoes the transition.
type CommitFunc func(ctx context.Context, r *entity.Reservation) error

// SweepFunc persists the release of expired holds for one session.
type SweepFunc func(ctx context.Context, sessionID uuid.UUID, expired []*entity.Reservation) error

// CloseFunc persists a session cancellation.
type CloseFunc func(ctx context.Context, expired, booked []*entity.Reservation) error

// ArchiveFunc persists the archival of a session, expiring its remaining holds.
type ArchiveFunc func(ctx context.Context, expired []*entity.Reservation) error

type Ledger struct {
	mu       sync.RWMutex
	books    map[uuid.UUID]*book
	owners   map[uuid.UUID]uuid.UUID // reservation -> session
	visitors *visitorIndex
	lockWait time.Duration
	policy   Policy
}

type Option func(*Ledger)

// WithLockWait bounds how long an operation waits for another operation on
// the same session before failing with LEDGER_BUSY.
func WithLockWait(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.lockWait = d
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(l *Ledger) {
		l.policy = p
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		books:    make(map[uuid.UUID]*book),
		owners:   make(map[uuid.UUID]uuid.UUID),
		visitors: newVisitorIndex(),
		lockWait: defaultLockWait,
		policy:   DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snapshot is the durable state of a session used to rebuild its book.
type Snapshot struct {
	SessionID    uuid.UUID
	StartsAt     time.Time
	Closed       bool
	Slots        []*entity.ReservationSlot
	Reservations []*entity.Reservation // held or booked only
}

// Open registers a freshly scheduled session with every seat available.
// Holds are refused from startsAt on; a zero startsAt never cuts them off.
// Opening a known session is a no-op.
func (l *Ledger) Open(sessionID uuid.UUID, startsAt time.Time, seats []uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.books[sessionID]; ok {
		return
	}
	l.books[sessionID] = newBook(sessionID, startsAt, seats)
}

// Restore rebuilds a session from storage. It reports false when the session
// is already loaded, in which case memory wins.
func (l *Ledger) Restore(snap Snapshot) bool {
	seats := make([]uuid.UUID, len(snap.Slots))
	for i, s := range snap.Slots {
		seats[i] = s.SeatID
	}
	b := newBook(snap.SessionID, snap.StartsAt, seats)
	b.closed = snap.Closed

	for _, r := range snap.Reservations {
		if r.Status != entity.ReservationStatusHeld && r.Status != entity.ReservationStatusBooked {
			continue
		}
		r = r.Clone()
		b.reservations[r.ID] = r
		if r.Status == entity.ReservationStatusBooked {
			b.booked += len(r.SeatIDs)
		}
	}

	for _, s := range snap.Slots {
		if s.State == entity.SlotAvailable || s.ReservationID == nil {
			continue
		}
		// A slot pointing at a reservation that is no longer active is stale.
		r, ok := b.reservations[*s.ReservationID]
		if !ok {
			continue
		}
		b.slots[s.SeatID].state = s.State
		b.slots[s.SeatID].reservationID = r.ID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.books[snap.SessionID]; ok {
		return false
	}
	l.books[snap.SessionID] = b
	for id, r := range b.reservations {
		l.owners[id] = snap.SessionID
		if r.Status == entity.ReservationStatusHeld {
			l.visitors.add(r.VisitorID, snap.SessionID, id)
		}
	}
	return true
}

// Drop forgets a session and all its reservations, for archival.
func (l *Ledger) Drop(ctx context.Context, sessionID uuid.UUID) error {
	b, err := l.lookup(sessionID)
	if err != nil {
		return nil
	}
	if err := b.acquire(ctx, l.lockWait); err != nil {
		return err
	}
	defer b.release()

	l.evict(b)
	return nil
}

// evict removes a book whose lock the caller holds. Operations queued on the
// lock see it as dropped.
func (l *Ledger) evict(b *book) {
	b.mu.Lock()
	b.dropped = true
	reservations := make([]*entity.Reservation, 0, len(b.reservations))
	for _, r := range b.reservations {
		reservations = append(reservations, r)
	}
	b.mu.Unlock()

	l.mu.Lock()
	delete(l.books, b.sessionID)
	for _, r := range reservations {
		delete(l.owners, r.ID)
	}
	l.mu.Unlock()

	for _, r := range reservations {
		if r.Status == entity.ReservationStatusHeld {
			l.visitors.forget(r.VisitorID, r.ID)
		}
	}
}

func (l *Ledger) Has(sessionID uuid.UUID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.books[sessionID]
	return ok
}

// Sessions lists loaded sessions in a stable order.
func (l *Ledger) Sessions() []uuid.UUID {
	l.mu.RLock()
	ids := make([]uuid.UUID, 0, len(l.books))
	for id := range l.books {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Universe returns the session's seats in layout order.
func (l *Ledger) Universe(sessionID uuid.UUID) ([]uuid.UUID, error) {
	b, err := l.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return append([]uuid.UUID(nil), b.seats...), nil
}

// Availability returns the current state of every seat. It does not take the
// session lock, so it may observe a transition whose commit is still running.
func (l *Ledger) Availability(sessionID uuid.UUID) (map[uuid.UUID]entity.SlotState, error) {
	b, err := l.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot(), nil
}

func (l *Ledger) Get(reservationID uuid.UUID) (*entity.Reservation, error) {
	b, err := l.owner(reservationID)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.reservations[reservationID]
	if !ok {
		return nil, apperrors.NotFoundWithID("reservation", reservationID.String())
	}
	return r.Clone(), nil
}

// ActiveHolds reports how many held reservations the visitor has.
func (l *Ledger) ActiveHolds(visitorID uuid.UUID) int {
	return l.visitors.count(visitorID)
}

func (l *Ledger) lookup(sessionID uuid.UUID) (*book, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.books[sessionID]
	if !ok {
		return nil, apperrors.NotFoundWithID("session", sessionID.String())
	}
	return b, nil
}

func (l *Ledger) owner(reservationID uuid.UUID) (*book, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sessionID, ok := l.owners[reservationID]
	if !ok {
		return nil, apperrors.NotFoundWithID("reservation", reservationID.String())
	}
	b, ok := l.books[sessionID]
	if !ok {
		return nil, apperrors.NotFoundWithID("reservation", reservationID.String())
	}
	return b, nil
}

func (l *Ledger) setOwner(reservationID, sessionID uuid.UUID) {
	l.mu.Lock()
	l.owners[reservationID] = sessionID
	l.mu.Unlock()
}

func (l *Ledger) clearOwner(reservationID uuid.UUID) {
	l.mu.Lock()
	delete(l.owners, reservationID)
	l.mu.Unlock()
}

// enter takes the session lock and rejects sessions dropped while waiting.
func (l *Ledger) enter(ctx context.Context, b *book) error {
	if err := b.acquire(ctx, l.lockWait); err != nil {
		return err
	}
	if b.dropped {
		b.release()
		return apperrors.NotFoundWithID("session", b.sessionID.String())
	}
	return nil
}
