package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"city-inspect-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textQuery(text string) store.Query {
	return store.Query{Text: text}
}

func TestAdvanceFollowsForwardOrder(t *testing.T) {
	s := New(textQuery("路面裂缝"), time.Hour, time.Now())
	require.Equal(t, store.SessionPending, s.Status)

	require.NoError(t, Advance(s, store.SessionAnalyzed))
	require.NoError(t, Advance(s, store.SessionCompleted))
	assert.True(t, s.Status.Terminal())
}

func TestAdvanceRejectsSkippingAnalyzed(t *testing.T) {
	s := New(textQuery("q"), time.Hour, time.Now())
	err := Advance(s, store.SessionCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, store.SessionPending, s.Status)
}

func TestAdvanceRejectsLeavingTerminal(t *testing.T) {
	s := New(textQuery("q"), time.Hour, time.Now())
	require.NoError(t, Advance(s, store.SessionExpired))

	err := Advance(s, store.SessionAnalyzed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceExpiresFromAnyNonTerminal(t *testing.T) {
	for _, from := range []store.SessionStatus{store.SessionPending, store.SessionAnalyzed} {
		s := New(textQuery("q"), time.Hour, time.Now())
		s.Status = from
		require.NoError(t, Advance(s, store.SessionExpired))
		assert.Equal(t, store.SessionExpired, s.Status)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ms := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	s := New(textQuery("井盖破损"), time.Hour, time.Now())
	require.NoError(t, ms.Create(ctx, s))

	got, err := ms.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, store.SessionPending, got.Status)
	assert.Equal(t, "井盖破损", got.Query.Text)
}

func TestMemoryStoreMissingSession(t *testing.T) {
	ms := NewMemoryStore(time.Hour, time.Minute)

	_, err := ms.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, store.ErrSessionExpired)
}

func TestMemoryStoreLogicalExpiry(t *testing.T) {
	ms := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	s := New(textQuery("q"), -time.Second, time.Now())
	require.NoError(t, ms.Create(ctx, s))

	_, err := ms.Get(ctx, s.ID)
	assert.ErrorIs(t, err, store.ErrSessionExpired)

	_, err = ms.Update(ctx, s.ID, func(sess *store.Session) error {
		return Advance(sess, store.SessionAnalyzed)
	})
	assert.ErrorIs(t, err, store.ErrSessionExpired)
}

func TestMemoryStoreCompletedReadableUntilDeadline(t *testing.T) {
	ms := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	s := New(textQuery("q"), time.Hour, time.Now())
	s.Status = store.SessionCompleted
	require.NoError(t, ms.Create(ctx, s))

	got, err := ms.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionCompleted, got.Status)
}

func TestMemoryStoreCompletedExpiresAtDeadline(t *testing.T) {
	ms := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	s := New(textQuery("q"), 10*time.Millisecond, time.Now())
	s.Status = store.SessionCompleted
	s.Evidence = []store.EvidenceItem{{
		FusedCandidate: store.FusedCandidate{
			Candidate: store.Candidate{ID: "chunk-1", Content: "护栏缺失"},
		},
	}}
	require.NoError(t, ms.Create(ctx, s))

	time.Sleep(50 * time.Millisecond)

	// Past the TTL no stale evidence may surface, terminal or not.
	_, err := ms.Get(ctx, s.ID)
	assert.ErrorIs(t, err, store.ErrSessionExpired)
}

func TestMemoryStoreUpdateIsAtomic(t *testing.T) {
	ms := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	s := New(textQuery("q"), time.Hour, time.Now())
	require.NoError(t, ms.Create(ctx, s))

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := ms.Update(ctx, s.ID, func(sess *store.Session) error {
				sess.Evidence = append(sess.Evidence, store.EvidenceItem{
					FusedCandidate: store.FusedCandidate{
						Candidate: store.Candidate{ID: fmt.Sprintf("chunk-%d", n)},
					},
				})
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := ms.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Evidence, writers)
}

func TestMemoryStoreUpdateMutateErrorLeavesSessionUntouched(t *testing.T) {
	ms := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	s := New(textQuery("q"), time.Hour, time.Now())
	require.NoError(t, ms.Create(ctx, s))

	_, err := ms.Update(ctx, s.ID, func(sess *store.Session) error {
		return Advance(sess, store.SessionCompleted)
	})
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, err := ms.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionPending, got.Status)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ms := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	s := New(textQuery("q"), time.Hour, time.Now())
	require.NoError(t, ms.Create(ctx, s))

	got, err := ms.Get(ctx, s.ID)
	require.NoError(t, err)
	got.Status = store.SessionCompleted

	again, err := ms.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionPending, again.Status)
}
