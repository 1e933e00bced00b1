package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"
)

type ContentExtractor struct {
	now func() time.Time
}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{now: time.Now}
}

// Run turns a fetched webpage into a single raw entry. The page URL is the
// entry link and becomes the base for relative references in the content.
func (e *ContentExtractor) Run(data []byte, pageURL string) (RawEntry, error) {
	if len(data) == 0 {
		return RawEntry{}, NewError(KindFormat, pageURL, fmt.Errorf("HTML data is empty"))
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return RawEntry{}, NewError(KindInvalidInput, pageURL, fmt.Errorf("failed to parse page URL: %w", err))
	}

	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return RawEntry{}, NewError(KindFormat, pageURL, fmt.Errorf("failed to extract content: %w", err))
	}

	if article.Content == "" {
		return RawEntry{}, NewError(KindFormat, pageURL, fmt.Errorf("no content extracted from HTML data"))
	}

	pubDate := e.now().UTC().Format(time.RFC3339)
	if article.PublishedTime != nil {
		pubDate = article.PublishedTime.UTC().Format(time.RFC3339)
	}

	slog.Debug("Content extracted successfully",
		"url", pageURL,
		"title", article.Title,
		"content_length", len(article.Content))

	return RawEntry{
		Title:   article.Title,
		Link:    pageURL,
		PubDate: pubDate,
		Content: article.Content,
	}, nil
}
