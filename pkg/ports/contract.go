package ports

import (
	"context"
	"testing"
	"time"

	"github.com/openlh/aliquot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract verifies that a RunStore implementation adheres to the
// interface contract. Every adapter's test suite runs it.
func RunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405.000")

	record := func(id string) *domain.RunRecord {
		now := time.Now().UTC().Truncate(time.Second)
		return &domain.RunRecord{
			ID:       id,
			Protocol: "serial-dilution",
			Status:   domain.RunSucceeded,
			Trace: []domain.TraceEntry{
				{Seq: 0, Op: domain.OpPickUpTip},
				{Seq: 1, Op: domain.OpAspirate, Volume: 50, Location: "A1 of plate in slot 1"},
				{Seq: 2, Op: domain.OpDispense, Volume: 50, Location: "B1 of plate in slot 1"},
				{Seq: 3, Op: domain.OpDropTip, Detail: "trash"},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		rec := record(runID)
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, loaded.ID)
		assert.Equal(t, rec.Protocol, loaded.Protocol)
		assert.Equal(t, rec.Status, loaded.Status)
		require.Len(t, loaded.Trace, 4)
		assert.Equal(t, domain.OpAspirate, loaded.Trace[1].Op)
		assert.Equal(t, 50.0, loaded.Trace[1].Volume)
		assert.Equal(t, "A1 of plate in slot 1", loaded.Trace[1].Location)
	})

	t.Run("Save replaces", func(t *testing.T) {
		rec := record(runID)
		rec.Status = domain.RunFailed
		rec.Error = "out of tips"
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunFailed, loaded.Status)
		assert.Equal(t, "out of tips", loaded.Error)
	})

	t.Run("Load is isolated from the caller", func(t *testing.T) {
		first, err := store.Load(ctx, runID)
		require.NoError(t, err)
		first.Trace[0].Op = domain.OpBlowOut
		first.Status = domain.RunPending

		second, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.OpPickUpTip, second.Trace[0].Op,
			"mutating a loaded record must not leak into the store")
		assert.Equal(t, domain.RunFailed, second.Status)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, record(runID)))
		require.NoError(t, store.Delete(ctx, runID))

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)

		assert.NoError(t, store.Delete(ctx, runID), "deleting a missing run is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, record(id1)))
		require.NoError(t, store.Save(ctx, record(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
