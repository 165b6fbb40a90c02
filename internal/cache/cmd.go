package cache

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source  string `arg:"" help:"Cache source to invalidate: discovery, openurl" required:""`
	Expired bool   `help:"Only drop entries older than cache.ttl"`
}

type expiryPruner interface {
	ClearExpired(tableName string, ttl time.Duration) error
}

func (i *InvalidateCacheCmd) Run() error {
	tableName, ok := Sources[i.Source]
	if !ok {
		names := make([]string, 0, len(Sources))
		for name := range Sources {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("invalid cache source '%s'; valid sources are: %s", i.Source, strings.Join(names, ", "))
	}

	slog.Info("Invalidating cache", "source", i.Source, "backend", viper.GetString("cache.backend"))

	store, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	if i.Expired {
		pruner, ok := store.(expiryPruner)
		if !ok {
			slog.Info("Backend expires entries on its own, nothing to prune", "source", i.Source)
			return nil
		}
		if err := pruner.ClearExpired(tableName, configuredTTL()); err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}
		return nil
	}

	rowsDeleted, err := store.InvalidateSource(tableName)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	slog.Info("Cache invalidated", "source", i.Source, "rows_deleted", rowsDeleted)
	return nil
}
