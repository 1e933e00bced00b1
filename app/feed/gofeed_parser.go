package feed

import (
	"bytes"
	"cmp"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// GofeedParser is the XML-parser backed alternative to PatternParser.
type GofeedParser struct {
	gofeedParser *gofeed.Parser
	now          func() time.Time
}

func NewGofeedParser() *GofeedParser {
	return &GofeedParser{
		gofeedParser: gofeed.NewParser(),
		now:          time.Now,
	}
}

func (p *GofeedParser) Run(data []byte, sourceURL string) ([]RawEntry, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Document is not a recognizable feed", "source", sourceURL, "error", err)
		return nil, NewError(KindFormat, sourceURL, err)
	}

	atom := parsed.FeedType == "atom"

	entries := make([]RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, p.normalizeItem(item, atom))
	}

	slog.Debug("Feed parsed", "source", sourceURL, "format", parsed.FeedType, "entries", len(entries))

	return entries, nil
}

func (p *GofeedParser) normalizeItem(item *gofeed.Item, atom bool) RawEntry {
	entry := RawEntry{
		Title: Normalize(strings.TrimSpace(item.Title)),
		Link:  cmp.Or(p.itemLink(item), PlaceholderLink),
	}

	if atom {
		entry.PubDate = cmp.Or(item.Updated, item.Published, p.now().UTC().Format(time.RFC3339))
		entry.Content = cmp.Or(item.Content, item.Description)
	} else {
		entry.PubDate = cmp.Or(item.Published, p.now().UTC().Format(time.RFC1123))
		entry.Content = cmp.Or(item.Description, item.Content)
	}
	entry.Content = cmp.Or(Normalize(strings.TrimSpace(entry.Content)), PlaceholderDescription)

	return entry
}

func (p *GofeedParser) itemLink(item *gofeed.Item) string {
	if item.Link != "" {
		return strings.TrimSpace(item.Link)
	}
	for _, link := range item.Links {
		if link != "" {
			return strings.TrimSpace(link)
		}
	}
	return ""
}
