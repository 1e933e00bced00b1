package database

import (
	"context"
	"testing"

	"github.com/lysyi3m/rss-digest/app/feed"
)

func TestItemStoreDedupByLink(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	items := NewItemStore(store)

	err := items.ReplaceItems(ctx, []feed.Item{
		{Title: "first", Link: "http://example.com/1", PubDate: "2024-03-10T00:00:00Z"},
		{Title: "second", Link: "http://example.com/1", PubDate: "2024-03-11T00:00:00Z"},
		{Title: "other", Link: "http://example.com/2", PubDate: "2024-03-09T00:00:00Z"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	count, err := items.GetItemCount(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 stored records, got %d", count)
	}

	doc, ok, err := store.Get(ctx, CollectionItems, ContentID("http://example.com/1"))
	if err != nil || !ok {
		t.Fatalf("Expected record under content id, got ok=%v err=%v", ok, err)
	}
	if string(doc.Data) == "" {
		t.Error("Expected stored data")
	}

	got, err := items.GetItems(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(got))
	}
	if got[0].Title != "second" {
		t.Errorf("Expected later duplicate to win and sort first, got %s", got[0].Title)
	}
}

func TestItemStoreReplaceDropsPrevious(t *testing.T) {
	ctx := context.Background()
	items := NewItemStore(newTestSQLiteStore(t))

	if err := items.ReplaceItems(ctx, []feed.Item{{Title: "old", Link: "http://example.com/old"}}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := items.ReplaceItems(ctx, []feed.Item{{Title: "new", Link: "http://example.com/new"}}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, _ := items.GetItems(ctx)
	if len(got) != 1 || got[0].Title != "new" {
		t.Errorf("Expected only new item, got %v", got)
	}
}

func TestSourceStore(t *testing.T) {
	ctx := context.Background()
	sources := NewSourceStore(newTestSQLiteStore(t))

	list, err := sources.GetSources(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected empty list, got %v", list)
	}

	a := feed.Source{Kind: feed.SourceKindFeed, URL: "https://a.example.com/rss"}
	b := feed.Source{Kind: feed.SourceKindWebpage, URL: "https://b.example.com/news"}

	if err := sources.AddSource(ctx, a); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := sources.AddSource(ctx, b); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := sources.AddSource(ctx, a); err != nil {
		t.Fatalf("Expected no error re-adding, got %v", err)
	}

	list, _ = sources.GetSources(ctx)
	if len(list) != 2 || list[0].URL != a.URL || list[1].URL != b.URL {
		t.Errorf("Expected ordered [a b], got %v", list)
	}

	err = sources.AddSource(ctx, feed.Source{Kind: feed.SourceKindFeed, URL: "ftp://bad"})
	if !feed.IsKind(err, feed.KindInvalidInput) {
		t.Errorf("Expected invalid input error, got %v", err)
	}

	err = sources.ReplaceSources(ctx, []feed.Source{a, a})
	if !feed.IsKind(err, feed.KindInvalidInput) {
		t.Errorf("Expected duplicate rejected, got %v", err)
	}

	removed, err := sources.RemoveSource(ctx, a.URL)
	if err != nil || !removed {
		t.Fatalf("Expected removal, got removed=%v err=%v", removed, err)
	}
	removed, _ = sources.RemoveSource(ctx, a.URL)
	if removed {
		t.Error("Expected second removal to report false")
	}

	list, _ = sources.GetSources(ctx)
	if len(list) != 1 || list[0].URL != b.URL {
		t.Errorf("Expected [b], got %v", list)
	}
}
