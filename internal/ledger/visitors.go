package ledger

import (
	"fmt"
	"sync"

	apperrors "cinema-ticketing/pkg/errors"

	"github.com/google/uuid"
)

// Policy bounds what a single visitor may hold at once.
type Policy struct {
	// MaxHoldsPerVisitor caps concurrently held reservations; 0 means no cap.
	MaxHoldsPerVisitor int
	// AllowCrossSessionHolds lets a visitor hold seats in several sessions.
	AllowCrossSessionHolds bool
}

func DefaultPolicy() Policy {
	return Policy{AllowCrossSessionHolds: true}
}

// visitorIndex tracks held reservations per visitor across all sessions.
type visitorIndex struct {
	mu    sync.Mutex
	holds map[uuid.UUID]map[uuid.UUID]uuid.UUID // visitor -> reservation -> session
}

func newVisitorIndex() *visitorIndex {
	return &visitorIndex{holds: make(map[uuid.UUID]map[uuid.UUID]uuid.UUID)}
}

// admit checks the policy and records the hold in one step, so two sessions
// cannot both admit the same visitor past the cap.
func (v *visitorIndex) admit(p Policy, visitorID, sessionID, reservationID uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	held := v.holds[visitorID]

	if p.MaxHoldsPerVisitor > 0 && len(held) >= p.MaxHoldsPerVisitor {
		return apperrors.Conflict(fmt.Sprintf("visitor already has %d active holds", len(held))).
			WithDetails(map[string]any{"reason": "max_holds_per_visitor", "limit": p.MaxHoldsPerVisitor})
	}

	if !p.AllowCrossSessionHolds {
		for _, other := range held {
			if other != sessionID {
				return apperrors.Conflict("visitor already holds seats in another session").
					WithDetails(map[string]any{"reason": "cross_session_hold", "session_id": other})
			}
		}
	}

	if held == nil {
		held = make(map[uuid.UUID]uuid.UUID)
		v.holds[visitorID] = held
	}
	held[reservationID] = sessionID
	return nil
}

// add records a hold without checking policy; used when restoring state.
func (v *visitorIndex) add(visitorID, sessionID, reservationID uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	held := v.holds[visitorID]
	if held == nil {
		held = make(map[uuid.UUID]uuid.UUID)
		v.holds[visitorID] = held
	}
	held[reservationID] = sessionID
}

func (v *visitorIndex) forget(visitorID, reservationID uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	held := v.holds[visitorID]
	delete(held, reservationID)
	if len(held) == 0 {
		delete(v.holds, visitorID)
	}
}

func (v *visitorIndex) count(visitorID uuid.UUID) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.holds[visitorID])
}
