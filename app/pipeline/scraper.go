package pipeline

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/net/html/charset"

	"github.com/lysyi3m/rss-digest/app/feed"
)

// ItemEnricher is the summarization stage as seen by the pipeline.
type ItemEnricher interface {
	Run(ctx context.Context, items []feed.Item) []feed.Item
}

// Scraper turns a plain webpage into summarized items.
type Scraper struct {
	httpClient *http.Client
	extractor  *feed.ContentExtractor
	enricher   ItemEnricher
	userAgent  string
}

func NewScraper(httpClient *http.Client, extractor *feed.ContentExtractor, enricher ItemEnricher, userAgent string) *Scraper {
	return &Scraper{
		httpClient: httpClient,
		extractor:  extractor,
		enricher:   enricher,
		userAgent:  userAgent,
	}
}

func (s *Scraper) Scrape(ctx context.Context, pageURL string) ([]feed.Item, error) {
	resp, err := download(ctx, s.httpClient, pageURL, s.userAgent, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.body), resp.contentType)
	if err != nil {
		return nil, feed.NewError(feed.KindFormat, pageURL, fmt.Errorf("failed to detect charset: %w", err))
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, feed.NewError(feed.KindFormat, pageURL, fmt.Errorf("failed to decode page: %w", err))
	}

	entry, err := s.extractor.Run(body, pageURL)
	if err != nil {
		return nil, err
	}

	item := feed.Item{
		Title:       cmp.Or(feed.Normalize(entry.Title), pageTitle(pageURL)),
		Link:        entry.Link,
		Description: entry.Content,
		PubDate:     entry.PubDate,
	}

	// Summarization is bounded by its own per-call timeout, not by the
	// fetch deadline.
	items := s.enricher.Run(context.WithoutCancel(ctx), []feed.Item{item})

	slog.Debug("Webpage scraped", "url", pageURL, "items", len(items))

	return items, nil
}

func pageTitle(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return pageURL
	}
	return u.Host + u.Path
}
