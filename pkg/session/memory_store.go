package session

import (
	"context"
	"sync"
	"time"

	"city-inspect-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in-process. The cache janitor is the
// sweep: expired entries, terminal or not, are purged on its interval.
// The backend expiry carries a grace period past the logical TTL so a
// read racing the janitor still gets the EXPIRED verdict instead of a
// bare miss; reads themselves fail at the logical deadline.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration

	// Serializes read-modify-write cycles; the cache alone only
	// guarantees safety of single operations.
	mu sync.Mutex
}

const sweepGrace = 5 * time.Minute

func NewMemoryStore(ttl, sweepInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(ttl+sweepGrace, sweepInterval),
		ttl:   ttl,
	}
}

func (m *MemoryStore) Create(_ context.Context, session *store.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Set(session.ID, cloneSession(session), cache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id, time.Now())
}

func (m *MemoryStore) Update(_ context.Context, id string, mutate func(*store.Session) error) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.get(id, time.Now())
	if err != nil {
		return nil, err
	}
	if err := mutate(session); err != nil {
		return nil, err
	}
	m.cache.Set(session.ID, session, cache.DefaultExpiration)
	return cloneSession(session), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Delete(id)
	return nil
}

func (m *MemoryStore) get(id string, now time.Time) (*store.Session, error) {
	x, found := m.cache.Get(id)
	if !found {
		return nil, store.ErrSessionExpired
	}
	session := x.(*store.Session)
	if expired(session, now) {
		if !session.Status.Terminal() {
			session.Status = store.SessionExpired
			m.cache.Set(session.ID, session, cache.DefaultExpiration)
		}
		return nil, store.ErrSessionExpired
	}
	return cloneSession(session), nil
}

// cloneSession keeps callers from aliasing cached state.
func cloneSession(s *store.Session) *store.Session {
	clone := *s
	if s.Evidence != nil {
		clone.Evidence = make([]store.EvidenceItem, len(s.Evidence))
		copy(clone.Evidence, s.Evidence)
	}
	return &clone
}
