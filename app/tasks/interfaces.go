package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-digest/app/pipeline"
)

// TaskSchedulerInterface is what the HTTP layer and main need from the
// background scheduler.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueRefresh() error
}

// Refresher rebuilds the item snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (*pipeline.Snapshot, error)
	LastRefresh() time.Time
}
