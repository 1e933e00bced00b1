package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-digest/app/feed"
)

// ItemStore persists the cached item snapshot, one document per ContentID.
type ItemStore struct {
	store DocumentStore
}

func NewItemStore(store DocumentStore) *ItemStore {
	return &ItemStore{store: store}
}

// GetItems returns the snapshot newest first. Items with unparseable dates
// sort last.
func (r *ItemStore) GetItems(ctx context.Context) ([]feed.Item, error) {
	docs, err := r.store.ListAll(ctx, CollectionItems)
	if err != nil {
		return nil, feed.NewError(feed.KindStorage, "", err)
	}

	items := make([]feed.Item, 0, len(docs))
	for _, doc := range docs {
		var item feed.Item
		if err := json.Unmarshal(doc.Data, &item); err != nil {
			slog.Warn("Skipping undecodable cached item", "key", doc.Key, "error", err)
			continue
		}
		items = append(items, item)
	}

	feed.SortByPubDateDesc(items)
	return items, nil
}

func (r *ItemStore) GetItemCount(ctx context.Context) (int, error) {
	docs, err := r.store.ListAll(ctx, CollectionItems)
	if err != nil {
		return 0, feed.NewError(feed.KindStorage, "", err)
	}
	return len(docs), nil
}

// ReplaceItems drops the previous snapshot and writes items keyed by
// ContentID. A later item with the same link overwrites an earlier one.
func (r *ItemStore) ReplaceItems(ctx context.Context, items []feed.Item) error {
	now := time.Now()

	byKey := make(map[string]int, len(items))
	docs := make([]Document, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode item %s: %w", item.Link, err)
		}

		doc := Document{Key: ContentID(item.Link), Data: data, UpdatedAt: now}
		if i, ok := byKey[doc.Key]; ok {
			docs[i] = doc
			continue
		}
		byKey[doc.Key] = len(docs)
		docs = append(docs, doc)
	}

	if err := r.store.ReplaceAll(ctx, CollectionItems, docs); err != nil {
		return feed.NewError(feed.KindStorage, "", err)
	}

	slog.Debug("Item snapshot replaced", "items", len(docs))
	return nil
}
