// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/subflow/pkg/persistence"
	"github.com/dukex/subflow/pkg/persistence/file"
	"github.com/dukex/subflow/pkg/persistence/memory"
	"github.com/dukex/subflow/pkg/persistence/postgresql"
)

// NewPersistence picks the backend from the URL scheme: memory://, file://<dir> or postgres://.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	logger.InfoContext(ctx, "Initializing persistence", "provider", provider)

	switch provider {
	case "memory":
		return memory.NewPersistence(), nil
	case "file":
		return file.NewPersistence(databaseURL), nil
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported persistence provider: %s", provider)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	if databaseURL == "" {
		return "memory"
	}

	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		// A bare path is a file store.
		return "file"
	}

	return provider
}
