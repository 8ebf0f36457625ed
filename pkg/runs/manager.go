package runs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/openlh/aliquot/internal/logging"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/ports"
)

// defaultLockTTL bounds how long a crashed replica can hold a run.
const defaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates run-record access, ensuring safe concurrent
// operations. It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.RunStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker ports.DistributedLocker // Optional distributed locker
	logger *slog.Logger
	ttl    time.Duration
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) { m.locker = locker }
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLockTTL overrides the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// NewManager creates a run Manager backed by the given store.
func NewManager(store ports.RunStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
		ttl:    defaultLockTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID returns a fresh random run identifier.
func NewID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken; fall back to a timestamp rather than panic.
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return "run-" + hex.EncodeToString(b[:])
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(runID) after
// unlocking.
func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry when it
// reaches zero.
func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

// WithLock executes fn while holding the lock for the run.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, runID, m.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"run_id", runID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Begin creates and persists a pending run record. An empty id draws a
// fresh one. Beginning an existing run is an error; records are never
// silently recycled.
func (m *Manager) Begin(ctx context.Context, id, protocol string) (*domain.RunRecord, error) {
	if id == "" {
		id = NewID()
	}
	var rec *domain.RunRecord
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, id)
		if err == nil {
			return fmt.Errorf("run %q: %w", id, domain.ErrRunExists)
		}
		if !errors.Is(err, domain.ErrRunNotFound) {
			return fmt.Errorf("failed to check run existence: %w", err)
		}

		now := time.Now().UTC()
		rec = &domain.RunRecord{
			ID:        id,
			Protocol:  protocol,
			Status:    domain.RunPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := m.store.Save(ctx, rec); err != nil {
			return fmt.Errorf("failed to initialize run: %w", err)
		}
		return nil
	})
	return rec, err
}

// Update applies mutate to the stored record under the run's lock and
// persists the result. It returns the updated record.
func (m *Manager) Update(ctx context.Context, runID string, mutate func(*domain.RunRecord)) (*domain.RunRecord, error) {
	var rec *domain.RunRecord
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		rec, err = m.store.Load(ctx, runID)
		if err != nil {
			return err
		}
		mutate(rec)
		rec.UpdatedAt = time.Now().UTC()
		return m.store.Save(ctx, rec)
	})
	return rec, err
}

// Load retrieves an existing run record from the store.
func (m *Manager) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	var rec *domain.RunRecord
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		rec, err = m.store.Load(ctx, runID)
		return err
	})
	return rec, err
}

// Delete removes the run from the store.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Delete(ctx, runID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying run store.
func (m *Manager) Store() ports.RunStore {
	return m.store
}
