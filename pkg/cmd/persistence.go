// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/persistence/file"
	"github.com/dukex/flowforge/pkg/persistence/memory"
	"github.com/dukex/flowforge/pkg/persistence/postgresql"
	"github.com/dukex/flowforge/pkg/persistence/redis"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis", "rediss", "mem"}

// NewPersistence selects the storage backend from the URL scheme. A URL without a scheme is a
// directory for the file backend.
//
// nolint:ireturn // callers only need the interface
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, location := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	case "redis", "rediss":
		p, err := redis.NewPersistence(ctx, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	case "mem":
		return memory.NewPersistence(), nil
	case "file":
		if location == "" {
			return nil, fmt.Errorf("%w: file persistence needs a directory", ErrUnsupportedProvider)
		}

		if err := os.MkdirAll(location, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		return file.NewPersistence(location), nil
	default:
		return nil, fmt.Errorf("%w: persistence %q (supported: %s)",
			ErrUnsupportedProvider, provider, strings.Join(supportedPersistenceProviders, ", "))
	}
}

func parsePersistenceProvider(databaseURL string) (string, string) {
	provider, location, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file", databaseURL
	}

	return provider, location
}
