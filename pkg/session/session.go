package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"city-inspect-be/pkg/store"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a status change would violate
// the PENDING -> ANALYZED -> COMPLETED order.
var ErrInvalidTransition = errors.New("invalid session transition")

// Store persists sessions between the two inspection phases. Get and
// Update treat a logically expired session the same as a missing one:
// both surface store.ErrSessionExpired and never resurrect state.
// Update applies mutate atomically with respect to concurrent updates
// of the same session.
type Store interface {
	Create(ctx context.Context, session *store.Session) error
	Get(ctx context.Context, id string) (*store.Session, error)
	Update(ctx context.Context, id string, mutate func(*store.Session) error) (*store.Session, error)
	Delete(ctx context.Context, id string) error
}

// New creates a pending session with a fresh id and the given TTL.
func New(query store.Query, ttl time.Duration, now time.Time) *store.Session {
	return &store.Session{
		ID:        uuid.New().String(),
		Status:    store.SessionPending,
		Query:     query,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

var nextStatus = map[store.SessionStatus]store.SessionStatus{
	store.SessionPending:  store.SessionAnalyzed,
	store.SessionAnalyzed: store.SessionCompleted,
}

// Advance moves the session to the target status, enforcing the
// forward-only order. EXPIRED is reachable from any non-terminal
// status; terminal statuses never change again.
func Advance(s *store.Session, to store.SessionStatus) error {
	if s.Status.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, s.Status)
	}
	if to == store.SessionExpired {
		s.Status = store.SessionExpired
		return nil
	}
	if nextStatus[s.Status] != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}

// expired decides whether the stored session still serves reads. Past
// the deadline every session is dead, COMPLETED included; the backend
// grace period only delays physical removal, never readability.
func expired(s *store.Session, now time.Time) bool {
	return s.Status == store.SessionExpired || s.ExpiredAt(now)
}
