package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/rss-digest/app/feed"
)

type fakeSummarizer struct {
	mu     sync.Mutex
	calls  map[string]int
	result func(html string) (*Result, error)
}

func (f *fakeSummarizer) Summarize(ctx context.Context, html string) (*Result, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[html]++
	f.mu.Unlock()

	return f.result(html)
}

var longText = strings.Repeat("This release improves the dashboard performance. ", 5)

func newTestEnricher(s Summarizer) *Enricher {
	e := NewEnricher(s, EnricherOptions{MinLength: 100, Timeout: time.Second, Concurrency: 4})
	e.now = func() time.Time { return time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestEnricherShortContent(t *testing.T) {
	s := &fakeSummarizer{result: func(string) (*Result, error) {
		t.Error("Summarizer must not be called for short content")
		return nil, errors.New("unexpected")
	}}

	items := newTestEnricher(s).Run(context.Background(), []feed.Item{{
		Title:       "Test Item 1",
		Link:        "http://example.com/1",
		Description: "Description 1",
		PubDate:     "Tue, 08 Jul 2025 00:00:00 GMT",
	}})

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	item := items[0]
	if len(item.Summary) != 1 || item.Summary[0] != "Description 1" {
		t.Errorf("Expected summary [Description 1], got %v", item.Summary)
	}
	if item.Product != feed.PlaceholderUnknown {
		t.Errorf("Expected unknown product, got %s", item.Product)
	}
	if item.Title != "Test Item 1" {
		t.Errorf("Expected parsed title kept, got %s", item.Title)
	}
	if item.PubDate != "Tue, 08 Jul 2025 00:00:00 GMT" {
		t.Errorf("Expected parsed pubDate kept, got %s", item.PubDate)
	}
}

func TestEnricherShortContentDefaults(t *testing.T) {
	items := newTestEnricher(Disabled{}).Run(context.Background(), []feed.Item{{
		Link:        "http://example.com/1",
		Description: "<p>tiny</p>",
	}})

	if items[0].Title != feed.PlaceholderUnknown {
		t.Errorf("Expected unknown title, got %s", items[0].Title)
	}
	if items[0].PubDate != "2025-07-10T00:00:00Z" {
		t.Errorf("Expected current date, got %s", items[0].PubDate)
	}
	if items[0].Summary[0] != "tiny" {
		t.Errorf("Expected stripped text, got %v", items[0].Summary)
	}
}

func TestEnricherSuccessOverwritesFields(t *testing.T) {
	s := &fakeSummarizer{result: func(string) (*Result, error) {
		return &Result{
			Product:      "Widget",
			Subcomponent: "CLI",
			Title:        "Widget 3.0",
			PubDate:      "2025-07-09T00:00:00Z",
			Summary:      []string{"Faster", "Smaller"},
			Category:     "new feature",
		}, nil
	}}

	items := newTestEnricher(s).Run(context.Background(), []feed.Item{{
		Title:       "Parsed title",
		Link:        "http://example.com/1",
		Description: longText,
		PubDate:     "Tue, 01 Jul 2025 00:00:00 GMT",
	}})

	item := items[0]
	if item.Title != "Widget 3.0" {
		t.Errorf("Expected summarized title to win, got %s", item.Title)
	}
	if item.PubDate != "2025-07-09T00:00:00Z" {
		t.Errorf("Expected summarized pubDate to win, got %s", item.PubDate)
	}
	if item.Product != "Widget" || item.Subcomponent != "CLI" {
		t.Errorf("Unexpected product/subcomponent: %s/%s", item.Product, item.Subcomponent)
	}
	if item.Category != "New Feature" {
		t.Errorf("Expected title-cased category, got %s", item.Category)
	}
	if len(item.Summary) != 2 {
		t.Errorf("Expected 2 summary bullets, got %v", item.Summary)
	}
}

func TestEnricherSuccessWithMissingFields(t *testing.T) {
	s := &fakeSummarizer{result: func(string) (*Result, error) {
		return &Result{PubDate: "someday"}, nil
	}}

	items := newTestEnricher(s).Run(context.Background(), []feed.Item{{
		Title:       "Parsed title",
		Link:        "http://example.com/1",
		Description: longText,
		PubDate:     "Tue, 01 Jul 2025 00:00:00 GMT",
	}})

	item := items[0]
	if item.Title != "Parsed title" {
		t.Errorf("Expected parsed title when omitted, got %s", item.Title)
	}
	if item.PubDate != "Tue, 01 Jul 2025 00:00:00 GMT" {
		t.Errorf("Expected parsed pubDate when unparseable, got %s", item.PubDate)
	}
	if item.Product != feed.PlaceholderUnknown {
		t.Errorf("Expected unknown product, got %s", item.Product)
	}
	if len(item.Summary) != 1 || item.Summary[0] != strings.TrimSpace(longText) {
		t.Errorf("Expected stripped text as summary, got %v", item.Summary)
	}
}

func TestEnricherFailureFallback(t *testing.T) {
	s := &fakeSummarizer{result: func(string) (*Result, error) {
		return nil, errors.New("model unavailable")
	}}

	original := feed.Item{
		Title:       "Parsed title",
		Link:        "http://example.com/1",
		Description: longText,
		PubDate:     "Tue, 01 Jul 2025 00:00:00 GMT",
	}
	items := newTestEnricher(s).Run(context.Background(), []feed.Item{original})

	item := items[0]
	if len(item.Summary) != 1 || item.Summary[0] != FallbackSummary {
		t.Errorf("Expected fallback summary, got %v", item.Summary)
	}
	if item.Title != original.Title || item.PubDate != original.PubDate || item.Product != "" {
		t.Errorf("Expected other fields untouched, got %+v", item)
	}
}

func TestEnricherTimeoutFallback(t *testing.T) {
	s := &fakeSummarizer{result: func(string) (*Result, error) {
		time.Sleep(200 * time.Millisecond)
		return &Result{Title: "too late"}, nil
	}}
	blocking := summarizerFunc(func(ctx context.Context, html string) (*Result, error) {
		res, err := s.Summarize(ctx, html)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return res, err
	})

	e := NewEnricher(blocking, EnricherOptions{Timeout: 50 * time.Millisecond})
	items := e.Run(context.Background(), []feed.Item{{Title: "t", Link: "http://example.com/1", Description: longText}})

	if items[0].Summary[0] != FallbackSummary {
		t.Errorf("Expected fallback after timeout, got %v", items[0].Summary)
	}
}

func TestEnricherOneOutcomePerItem(t *testing.T) {
	var n atomic.Int32
	s := &fakeSummarizer{result: func(html string) (*Result, error) {
		if n.Add(1)%2 == 0 {
			return nil, errors.New("flaky")
		}
		return &Result{Summary: []string{"ok"}}, nil
	}}

	var input []feed.Item
	for i := 0; i < 20; i++ {
		input = append(input, feed.Item{
			Title:       "item",
			Link:        "http://example.com/" + string(rune('a'+i)),
			Description: longText + string(rune('a'+i)),
		})
	}

	items := newTestEnricher(s).Run(context.Background(), input)
	if len(items) != len(input) {
		t.Fatalf("Expected %d items, got %d", len(input), len(items))
	}
	for i, item := range items {
		if item.Link != input[i].Link {
			t.Errorf("Expected input order preserved at %d", i)
		}
		if len(item.Summary) != 1 {
			t.Errorf("Expected one summary bullet for %s, got %v", item.Link, item.Summary)
		}
	}

	for html, count := range s.calls {
		if count != 1 {
			t.Errorf("Expected one call per item, got %d for %.20q", count, html)
		}
	}
}

func TestEnricherSkipsSummarizedItems(t *testing.T) {
	s := &fakeSummarizer{result: func(string) (*Result, error) {
		t.Error("Summarizer must not be called for already summarized items")
		return nil, errors.New("unexpected")
	}}

	items := newTestEnricher(s).Run(context.Background(), []feed.Item{{
		Title:       "scraped",
		Link:        "http://example.com/page",
		Description: longText,
		Summary:     []string{"already done"},
	}})

	if items[0].Summary[0] != "already done" {
		t.Errorf("Expected existing summary kept, got %v", items[0].Summary)
	}
}

func TestStripMarkup(t *testing.T) {
	got := StripMarkup("<h3>Title</h3>\n<p>Some   <b>bold</b>\ttext</p>")
	if got != "Title Some bold text" {
		t.Errorf("Unexpected stripped text: %q", got)
	}
}

type summarizerFunc func(ctx context.Context, html string) (*Result, error)

func (f summarizerFunc) Summarize(ctx context.Context, html string) (*Result, error) {
	return f(ctx, html)
}
