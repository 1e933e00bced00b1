package database

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-digest/app/feed"
)

const (
	CollectionSources = "sources"
	CollectionItems   = "items"
)

// Document is one JSON record in a collection.
type Document struct {
	Key       string
	Data      []byte
	UpdatedAt time.Time
}

// DocumentStore is the persistence collaborator. Get reports absence with
// ok == false and a nil error.
type DocumentStore interface {
	Get(ctx context.Context, collection, key string) (Document, bool, error)
	Set(ctx context.Context, collection string, doc Document) error
	Delete(ctx context.Context, collection, key string) error
	ListAll(ctx context.Context, collection string) ([]Document, error)
	SetBatch(ctx context.Context, collection string, docs []Document) error
	DeleteAll(ctx context.Context, collection string) error
	// ReplaceAll swaps the whole collection for docs. Readers see either
	// the old or the new set, never a mix.
	ReplaceAll(ctx context.Context, collection string, docs []Document) error
	Ping(ctx context.Context) error
	Close() error
}

type SourceRepository interface {
	GetSources(ctx context.Context) ([]feed.Source, error)
	ReplaceSources(ctx context.Context, sources []feed.Source) error
	AddSource(ctx context.Context, source feed.Source) error
	RemoveSource(ctx context.Context, url string) (bool, error)
}

type ItemRepository interface {
	GetItems(ctx context.Context) ([]feed.Item, error)
	GetItemCount(ctx context.Context) (int, error)
	ReplaceItems(ctx context.Context, items []feed.Item) error
}

var (
	_ DocumentStore    = (*SQLiteStore)(nil)
	_ DocumentStore    = (*RedisStore)(nil)
	_ SourceRepository = (*SourceStore)(nil)
	_ ItemRepository   = (*ItemStore)(nil)
)
