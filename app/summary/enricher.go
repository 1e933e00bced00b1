package summary

import (
	"cmp"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/metrics"
)

const FallbackSummary = "Summary unavailable."

type EnricherOptions struct {
	MinLength   int
	Timeout     time.Duration
	Rate        float64
	Concurrency int
}

// Enricher fills summary fields on every item of a batch. It never drops an
// item: each input yields exactly one output, enriched or fallback.
type Enricher struct {
	summarizer  Summarizer
	limiter     *rate.Limiter
	minLength   int
	timeout     time.Duration
	concurrency int
	now         func() time.Time
}

func NewEnricher(summarizer Summarizer, opts EnricherOptions) *Enricher {
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}

	return &Enricher{
		summarizer:  summarizer,
		limiter:     rate.NewLimiter(limit, 1),
		minLength:   cmp.Or(opts.MinLength, 100),
		timeout:     cmp.Or(opts.Timeout, time.Minute),
		concurrency: max(opts.Concurrency, 1),
		now:         time.Now,
	}
}

// Run returns the enriched items in input order.
func (e *Enricher) Run(ctx context.Context, items []feed.Item) []feed.Item {
	results := make([]feed.Item, len(items))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)

	for i, item := range items {
		g.Go(func() error {
			results[i] = e.enrich(ctx, item)
			return nil
		})
	}
	g.Wait()

	return results
}

func (e *Enricher) enrich(ctx context.Context, item feed.Item) feed.Item {
	if len(item.Summary) > 0 {
		return item
	}

	stripped := StripMarkup(item.Description)

	if len([]rune(stripped)) < e.minLength {
		metrics.SummariesTotal.WithLabelValues(metrics.ResultShort).Inc()

		item.Summary = []string{stripped}
		item.Product = feed.PlaceholderUnknown
		item.Title = cmp.Or(item.Title, feed.PlaceholderUnknown)
		item.PubDate = cmp.Or(item.PubDate, e.now().UTC().Format(time.RFC3339))
		return item
	}

	res, err := e.summarize(ctx, item.Description)
	if err != nil {
		metrics.SummariesTotal.WithLabelValues(metrics.ResultFallback).Inc()
		slog.Warn("Summarization failed, using fallback",
			"link", item.Link,
			"error", feed.NewError(feed.KindSummarization, item.Link, err))

		item.Summary = []string{FallbackSummary}
		return item
	}

	metrics.SummariesTotal.WithLabelValues(metrics.ResultOK).Inc()

	item.Title = cmp.Or(strings.TrimSpace(res.Title), item.Title, feed.PlaceholderUnknown)
	item.PubDate = cmp.Or(e.validDate(res.PubDate), item.PubDate, e.now().UTC().Format(time.RFC3339))
	item.Product = cmp.Or(strings.TrimSpace(res.Product), feed.PlaceholderUnknown)
	item.Subcomponent = strings.TrimSpace(res.Subcomponent)
	item.Category = titleCase(res.Category)
	item.Summary = res.Summary
	if len(item.Summary) == 0 {
		item.Summary = []string{stripped}
	}

	return item
}

// summarize makes the single collaborator call for an item, paced by the
// shared limiter and bounded by the per-item timeout.
func (e *Enricher) summarize(ctx context.Context, html string) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.limiter.Wait(callCtx); err != nil {
		return nil, err
	}

	return e.summarizer.Summarize(callCtx, html)
}

// validDate keeps a collaborator date only when the recency classifier can
// read it.
func (e *Enricher) validDate(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := feed.ParsePubDate(s); !ok {
		return ""
	}
	return s
}

// StripMarkup returns the visible text of an HTML fragment with whitespace
// collapsed.
func StripMarkup(fragment string) string {
	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		text = doc.Text()
	}
	return strings.Join(strings.Fields(text), " ")
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(s)
}
