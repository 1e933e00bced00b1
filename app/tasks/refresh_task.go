package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type RefreshTask struct {
	Task
	refresher Refresher
}

func NewRefreshTask(refresher Refresher) *RefreshTask {
	return &RefreshTask{
		Task:      NewTask(TaskTypeRefresh),
		refresher: refresher,
	}
}

func (t *RefreshTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	snapshot, err := t.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh snapshot: %w", err)
	}
	if snapshot.StoreErr != nil {
		return fmt.Errorf("failed to store snapshot: %w", snapshot.StoreErr)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"items", len(snapshot.Items),
		"source_errors", len(snapshot.Errors),
		"duration", t.GetDuration())

	return nil
}
