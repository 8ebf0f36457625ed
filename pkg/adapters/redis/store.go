// Package redis persists run records in Redis, with optional TTL-based
// expiry and a sorted-set index for listing. It also provides the
// distributed run locker used by multi-replica deployments.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/openlh/aliquot/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "aliquot:runs:"

// Store implements ports.RunStore on Redis. Records are stored as JSON
// values; an index sorted set tracks run IDs with their expiry time as the
// score, so List can lazily drop expired members.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration // zero means no expiry
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithTTL expires run records after the given duration.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewFromClient creates a Store on an existing Redis client.
func NewFromClient(client *backend.Client, opts ...StoreOption) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(runID string) string { return s.prefix + runID }

func (s *Store) indexKey() string { return s.prefix + "index" }

// expiryScore is the index score for a record saved now. Non-expiring
// members score +inf so the lazy cleanup range never touches them.
func (s *Store) expiryScore(now time.Time) float64 {
	if s.ttl <= 0 {
		return math.Inf(1)
	}
	return float64(now.Add(s.ttl).Unix())
}

// Save serializes the record and writes it under the run's key, updating
// the index.
func (s *Store) Save(ctx context.Context, rec *domain.RunRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize run %s: %w", rec.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(rec.ID), payload, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  s.expiryScore(time.Now()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error saving run %s: %w", rec.ID, err)
	}
	return nil
}

// Load fetches and deserializes the record.
func (s *Store) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	payload, err := s.client.Get(ctx, s.key(runID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error loading run %s: %w", runID, err)
	}

	var rec domain.RunRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to deserialize run %s: %w", runID, err)
	}
	return &rec, nil
}

// Delete removes the record and its index entry.
func (s *Store) Delete(ctx context.Context, runID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(runID))
	pipe.ZRem(ctx, s.indexKey(), runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error deleting run %s: %w", runID, err)
	}
	return nil
}

// List returns the indexed run IDs, lazily dropping entries whose TTL has
// passed. Keys expire in Redis on their own; the index catches up here.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("redis error pruning run index: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing runs: %w", err)
	}
	return ids, nil
}
