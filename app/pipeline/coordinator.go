package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/metrics"
)

// BatchFetcher is the fetch stage as seen by the Coordinator.
type BatchFetcher interface {
	Run(ctx context.Context, sources []feed.Source) *Result
}

// Snapshot is what a read returns. StoreErr is set when the refreshed items
// could not be written; Items still holds them.
type Snapshot struct {
	Items    []feed.Item
	Errors   []string
	Cached   bool
	StoreErr error
}

// Coordinator serves the persisted snapshot and rebuilds it on a miss or
// on request.
type Coordinator struct {
	sources   database.SourceRepository
	items     database.ItemRepository
	fetcher   BatchFetcher
	enricher  ItemEnricher
	retention time.Duration
	now       func() time.Time

	refreshMu   sync.Mutex
	mu          sync.RWMutex
	lastRefresh time.Time
}

func NewCoordinator(sources database.SourceRepository, items database.ItemRepository,
	fetcher BatchFetcher, enricher ItemEnricher, retention time.Duration) *Coordinator {
	return &Coordinator{
		sources:   sources,
		items:     items,
		fetcher:   fetcher,
		enricher:  enricher,
		retention: retention,
		now:       time.Now,
	}
}

// Read returns the cached snapshot when it is non-empty and refresh is
// false; otherwise it runs the full pipeline.
func (c *Coordinator) Read(ctx context.Context, refresh bool) (*Snapshot, error) {
	if !refresh {
		items, err := c.items.GetItems(ctx)
		switch {
		case err != nil:
			metrics.CacheReadsTotal.WithLabelValues(metrics.ResultError).Inc()
			slog.Warn("Snapshot read failed, refreshing", "error", err)
		case len(items) > 0:
			metrics.CacheReadsTotal.WithLabelValues(metrics.ResultHit).Inc()
			return &Snapshot{Items: items, Errors: []string{}, Cached: true}, nil
		default:
			metrics.CacheReadsTotal.WithLabelValues(metrics.ResultMiss).Inc()
			slog.Debug("Snapshot empty, refreshing")
		}
	}

	return c.Refresh(ctx)
}

// Refresh rebuilds and persists the snapshot. Concurrent callers are
// serialized so the store sees a single writer.
func (c *Coordinator) Refresh(ctx context.Context) (*Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := time.Now()
	defer func() { metrics.RefreshDuration.Observe(time.Since(start).Seconds()) }()

	sources, err := c.sources.GetSources(ctx)
	if err != nil {
		slog.Error("Failed to load sources", "error", err)
		return nil, err
	}

	fetched := c.fetcher.Run(ctx, sources)
	enriched := c.enricher.Run(ctx, fetched.Items)
	items := dedupe(c.retain(enriched))
	feed.SortByPubDateDesc(items)

	snapshot := &Snapshot{Items: items, Errors: fetched.Errors}

	if err := c.items.ReplaceItems(ctx, items); err != nil {
		slog.Error("Failed to write snapshot", "items", len(items), "error", err)
		snapshot.StoreErr = err
		return snapshot, nil
	}

	c.mu.Lock()
	c.lastRefresh = c.now()
	c.mu.Unlock()

	slog.Info("Snapshot refreshed",
		"sources", len(sources),
		"fetched", len(fetched.Items),
		"stored", len(items),
		"errors", len(fetched.Errors),
		"duration", time.Since(start))

	return snapshot, nil
}

func (c *Coordinator) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// retain keeps items published within the retention window.
func (c *Coordinator) retain(items []feed.Item) []feed.Item {
	now := c.now()
	kept := make([]feed.Item, 0, len(items))
	for _, item := range items {
		if !feed.WithinWindow(item.PubDate, now, c.retention) {
			slog.Debug("Dropping item outside retention window", "link", item.Link, "pub_date", item.PubDate)
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// dedupe keeps one item per link: the last one wins, at the position of the
// first.
func dedupe(items []feed.Item) []feed.Item {
	index := make(map[string]int, len(items))
	out := make([]feed.Item, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.Link]; ok {
			out[i] = item
			continue
		}
		index[item.Link] = len(out)
		out = append(out, item)
	}
	return out
}
