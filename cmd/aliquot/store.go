package main

import (
	"fmt"

	"github.com/openlh/aliquot/pkg/adapters/memory"
	redisadapter "github.com/openlh/aliquot/pkg/adapters/redis"
	"github.com/openlh/aliquot/pkg/adapters/sqlite"
	"github.com/openlh/aliquot/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// registerStoreFlags adds the persistence flags shared by run and serve.
func registerStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "memory", "Run store backend: memory, sqlite or redis")
	cmd.Flags().String("db", "aliquot.db", "Database file path (sqlite store)")
	cmd.Flags().String("redis", "localhost:6379", "Redis address (redis store)")
}

// newRunStore builds the run store the command asked for. The returned
// close function releases the backend connection; it is non-nil even for
// backends with nothing to close.
func newRunStore(cmd *cobra.Command) (ports.RunStore, func() error, error) {
	kind, _ := cmd.Flags().GetString("store")
	switch kind {
	case "memory":
		return memory.NewStore(), func() error { return nil }, nil
	case "sqlite":
		path, _ := cmd.Flags().GetString("db")
		store, err := sqlite.NewStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, store.Close, nil
	case "redis":
		addr, _ := cmd.Flags().GetString("redis")
		client := backend.NewClient(&backend.Options{Addr: addr})
		return redisadapter.NewFromClient(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (memory, sqlite or redis)", kind)
	}
}
