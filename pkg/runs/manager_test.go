package runs_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/ports"
	"github.com/openlh/aliquot/pkg/runs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore simulates store latency to provoke lost updates if the
// manager's locking were missing.
type slowStore struct {
	mu   sync.Mutex
	data map[string]*domain.RunRecord
}

func (s *slowStore) Save(ctx context.Context, rec *domain.RunRecord) error {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*domain.RunRecord)
	}
	s.data[rec.ID] = rec.Clone()
	return nil
}

func (s *slowStore) Load(ctx context.Context, id string) (*domain.RunRecord, error) {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return rec.Clone(), nil
}

func (s *slowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *slowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestBegin(t *testing.T) {
	mgr := runs.NewManager(&slowStore{})
	ctx := context.Background()

	rec, err := mgr.Begin(ctx, "run-1", "serial-dilution")
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, "serial-dilution", rec.Protocol)
	assert.Equal(t, domain.RunPending, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())

	_, err = mgr.Begin(ctx, "run-1", "serial-dilution")
	assert.ErrorIs(t, err, domain.ErrRunExists, "beginning an existing run must fail")

	t.Run("generates an id when none given", func(t *testing.T) {
		a, err := mgr.Begin(ctx, "", "p1")
		require.NoError(t, err)
		b, err := mgr.Begin(ctx, "", "p2")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(a.ID, "run-"))
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestUpdate(t *testing.T) {
	mgr := runs.NewManager(&slowStore{})
	ctx := context.Background()

	_, err := mgr.Begin(ctx, "run-1", "p")
	require.NoError(t, err)

	rec, err := mgr.Update(ctx, "run-1", func(r *domain.RunRecord) {
		r.Status = domain.RunSucceeded
		r.Trace = append(r.Trace, domain.TraceEntry{Seq: 0, Op: domain.OpPickUpTip})
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, rec.Status)

	loaded, err := mgr.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, loaded.Status)
	require.Len(t, loaded.Trace, 1)

	_, err = mgr.Update(ctx, "missing", func(r *domain.RunRecord) {})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	mgr := runs.NewManager(&slowStore{})
	ctx := context.Background()

	_, err := mgr.Begin(ctx, "race", "p")
	require.NoError(t, err)

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			_, err := mgr.Update(ctx, "race", func(r *domain.RunRecord) {
				r.Trace = append(r.Trace, domain.TraceEntry{Seq: seq, Op: domain.OpAspirate})
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rec, err := mgr.Load(ctx, "race")
	require.NoError(t, err)
	assert.Len(t, rec.Trace, writers, "read-modify-write cycles must not lose updates")
}

type countingLocker struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.acquired++
	l.mu.Unlock()
	return func(ctx context.Context) error {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestDistributedLockerWrapsEveryAccess(t *testing.T) {
	locker := &countingLocker{}
	mgr := runs.NewManager(&slowStore{}, runs.WithLocker(locker))
	ctx := context.Background()

	_, err := mgr.Begin(ctx, "run-1", "p")
	require.NoError(t, err)
	_, err = mgr.Load(ctx, "run-1")
	require.NoError(t, err)
	require.NoError(t, mgr.Delete(ctx, "run-1"))

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Equal(t, 3, locker.acquired)
	assert.Equal(t, locker.acquired, locker.released, "every lock must be released")
}
