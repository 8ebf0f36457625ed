package ports

import (
	"context"

	"github.com/openlh/aliquot/pkg/domain"
)

// RunStore persists run records so protocol outcomes survive the process
// and can be inspected over the HTTP and MCP surfaces.
type RunStore interface {
	// Save persists the record under its ID, replacing any previous
	// version.
	Save(ctx context.Context, rec *domain.RunRecord) error

	// Load retrieves a record by run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, id string) (*domain.RunRecord, error)

	// Delete removes a record. Deleting a missing run is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the stored run IDs.
	List(ctx context.Context) ([]string, error)
}
