package runs

import (
	"context"
	"fmt"
	"testing"

	"github.com/openlh/aliquot/pkg/domain"
)

type stubStore struct{}

func (stubStore) Save(ctx context.Context, rec *domain.RunRecord) error { return nil }
func (stubStore) Load(ctx context.Context, id string) (*domain.RunRecord, error) {
	return &domain.RunRecord{ID: id}, nil
}
func (stubStore) Delete(ctx context.Context, id string) error { return nil }
func (stubStore) List(ctx context.Context) ([]string, error)  { return nil, nil }

func TestManagerLockLifecycle(t *testing.T) {
	mgr := NewManager(stubStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("run-%d", i)
		_, _ = mgr.Load(ctx, id)
		_ = mgr.Delete(ctx, id)
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("memory leak: %d locks remaining after all runs finished", n)
	}
}
