package api

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/pipeline"
	"github.com/lysyi3m/rss-digest/app/tasks"
)

type GeneratorInterface interface {
	Run(title, link string, items []feed.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// SnapshotReader is the read-through cache in front of the pipeline.
type SnapshotReader interface {
	Read(ctx context.Context, refresh bool) (*pipeline.Snapshot, error)
	LastRefresh() time.Time
}

var _ SnapshotReader = (*pipeline.Coordinator)(nil)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	reader     SnapshotReader
	sourceRepo database.SourceRepository
	itemRepo   database.ItemRepository
	store      Pinger
	generator  GeneratorInterface
	scheduler  tasks.TaskSchedulerInterface
	publicURL  string
	version    string
	retention  time.Duration
}

type itemsResponse struct {
	Items      []feed.Item `json:"items"`
	Errors     []string    `json:"errors"`
	Cached     bool        `json:"cached"`
	StoreError string      `json:"store_error,omitempty"`
}

type recentResponse struct {
	Policy   feed.Policy `json:"policy"`
	Current  []feed.Item `json:"current"`
	Previous []feed.Item `json:"previous"`
	// Partial is set when the snapshot retention is shorter than the
	// policy's previous period, so older items were never kept.
	Partial bool `json:"partial,omitempty"`
}

type sourcesRequest struct {
	Sources []feed.Source `json:"sources"`
}
