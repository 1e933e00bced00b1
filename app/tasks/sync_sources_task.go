package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
)

// SyncSourcesTask seeds the stored source list from the YAML seed files.
// A non-empty stored list is administered through the API and left alone.
type SyncSourcesTask struct {
	Task
	configCache *feed.ConfigCache
	sourceRepo  database.SourceRepository
}

func NewSyncSourcesTask(configCache *feed.ConfigCache, sourceRepo database.SourceRepository) *SyncSourcesTask {
	return &SyncSourcesTask{
		Task:        NewTask(TaskTypeSyncSources),
		configCache: configCache,
		sourceRepo:  sourceRepo,
	}
}

func (t *SyncSourcesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	existing, err := t.sourceRepo.GetSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored sources: %w", err)
	}
	if len(existing) > 0 {
		slog.Debug("Stored source list present, skipping seed", "sources", len(existing))
		return nil
	}

	seed := t.configCache.EnabledSources()
	if len(seed) == 0 {
		slog.Debug("No seed sources configured")
		return nil
	}

	if err := t.sourceRepo.ReplaceSources(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed sources: %w", err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"sources", len(seed),
		"duration", t.GetDuration())

	return nil
}
