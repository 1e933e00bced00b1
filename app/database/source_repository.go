package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/rss-digest/app/feed"
)

const sourceListKey = "list"

// SourceStore persists the ordered source list as a single document.
type SourceStore struct {
	store DocumentStore
}

func NewSourceStore(store DocumentStore) *SourceStore {
	return &SourceStore{store: store}
}

func (r *SourceStore) GetSources(ctx context.Context) ([]feed.Source, error) {
	doc, ok, err := r.store.Get(ctx, CollectionSources, sourceListKey)
	if err != nil {
		return nil, feed.NewError(feed.KindStorage, "", err)
	}
	if !ok {
		return []feed.Source{}, nil
	}

	var sources []feed.Source
	if err := json.Unmarshal(doc.Data, &sources); err != nil {
		return nil, feed.NewError(feed.KindStorage, "", fmt.Errorf("failed to decode source list: %w", err))
	}
	return sources, nil
}

func (r *SourceStore) ReplaceSources(ctx context.Context, sources []feed.Source) error {
	seen := make(map[string]bool, len(sources))
	for _, source := range sources {
		if err := source.Validate(); err != nil {
			return err
		}
		if seen[source.URL] {
			return feed.NewError(feed.KindInvalidInput, source.URL, fmt.Errorf("duplicate source"))
		}
		seen[source.URL] = true
	}

	data, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to encode source list: %w", err)
	}

	doc := Document{Key: sourceListKey, Data: data, UpdatedAt: time.Now()}
	if err := r.store.Set(ctx, CollectionSources, doc); err != nil {
		return feed.NewError(feed.KindStorage, "", err)
	}
	return nil
}

// AddSource appends source, or replaces the entry with the same URL in place.
func (r *SourceStore) AddSource(ctx context.Context, source feed.Source) error {
	if err := source.Validate(); err != nil {
		return err
	}

	sources, err := r.GetSources(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range sources {
		if sources[i].URL == source.URL {
			sources[i] = source
			replaced = true
			break
		}
	}
	if !replaced {
		sources = append(sources, source)
	}

	return r.ReplaceSources(ctx, sources)
}

func (r *SourceStore) RemoveSource(ctx context.Context, url string) (bool, error) {
	sources, err := r.GetSources(ctx)
	if err != nil {
		return false, err
	}

	kept := make([]feed.Source, 0, len(sources))
	for _, source := range sources {
		if source.URL != url {
			kept = append(kept, source)
		}
	}
	if len(kept) == len(sources) {
		return false, nil
	}

	return true, r.ReplaceSources(ctx, kept)
}
