package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/metrics"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

// FetchFunc produces the items of one source.
type FetchFunc func(ctx context.Context, source feed.Source) ([]feed.Item, error)

// Result of a batch fetch. Items are concatenated in source order; Errors
// holds one "<url>: <message>" entry per failing source.
type Result struct {
	Items  []feed.Item
	Errors []string
}

type Fetcher struct {
	httpClient *http.Client
	parser     feed.Parser
	splitter   *feed.Splitter
	filterer   *feed.Filterer
	userAgent  string
	timeout    time.Duration
	dispatch   map[feed.SourceKind]FetchFunc
}

func NewFetcher(httpClient *http.Client, parser feed.Parser, splitter *feed.Splitter, filterer *feed.Filterer,
	scraper *Scraper, userAgent string, timeout time.Duration) *Fetcher {
	f := &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		splitter:   splitter,
		filterer:   filterer,
		userAgent:  userAgent,
		timeout:    timeout,
	}

	f.dispatch = map[feed.SourceKind]FetchFunc{
		feed.SourceKindFeed: f.fetchFeed,
		feed.SourceKindWebpage: func(ctx context.Context, source feed.Source) ([]feed.Item, error) {
			items, err := scraper.Scrape(ctx, source.URL)
			if err != nil {
				return nil, err
			}
			return f.filterer.Run(items, source), nil
		},
	}

	return f
}

// Run fetches every source concurrently. A failing source contributes one
// error and never hides the items of the others.
func (f *Fetcher) Run(ctx context.Context, sources []feed.Source) *Result {
	items := make([][]feed.Item, len(sources))
	errs := make([]error, len(sources))

	g := new(errgroup.Group)
	for i, source := range sources {
		g.Go(func() error {
			items[i], errs[i] = f.FetchOne(ctx, source)
			return nil
		})
	}
	g.Wait()

	result := &Result{Items: []feed.Item{}, Errors: []string{}}
	for i, source := range sources {
		if errs[i] != nil {
			result.Errors = append(result.Errors, feed.Message(source.URL, errs[i]))
			continue
		}
		result.Items = append(result.Items, items[i]...)
	}

	slog.Info("Sources fetched", "sources", len(sources), "items", len(result.Items), "errors", len(result.Errors))

	return result
}

// FetchOne fetches a single source under its own timeout and returns only
// items that satisfy the item invariant.
func (f *Fetcher) FetchOne(ctx context.Context, source feed.Source) ([]feed.Item, error) {
	start := time.Now()

	if err := source.Validate(); err != nil {
		metrics.FetchTotal.WithLabelValues(string(source.Kind), metrics.ResultError).Inc()
		slog.Warn("Skipping invalid source", "url", source.URL, "kind", source.Kind, "error", err)
		return nil, err
	}

	fetch := f.dispatch[source.Kind]

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	items, err := fetch(fetchCtx, source)
	if err != nil {
		metrics.FetchTotal.WithLabelValues(string(source.Kind), metrics.ResultError).Inc()
		slog.Warn("Source fetch failed", "url", source.URL, "kind", source.Kind, "duration", time.Since(start), "error", err)
		return nil, err
	}

	valid := make([]feed.Item, 0, len(items))
	for _, item := range items {
		if !item.Valid() {
			slog.Debug("Discarding item without title or link", "source", source.URL, "title", item.Title, "link", item.Link)
			continue
		}
		valid = append(valid, item)
	}

	metrics.FetchTotal.WithLabelValues(string(source.Kind), metrics.ResultOK).Inc()
	slog.Info("Source fetched", "url", source.URL, "kind", source.Kind, "items", len(valid), "duration", time.Since(start))

	return valid, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, source feed.Source) ([]feed.Item, error) {
	resp, err := download(ctx, f.httpClient, source.URL, f.userAgent, feedAccept)
	if err != nil {
		return nil, err
	}

	entries, err := f.parser.Run(resp.body, source.URL)
	if err != nil {
		return nil, err
	}

	return f.filterer.Run(f.splitter.Run(entries), source), nil
}
