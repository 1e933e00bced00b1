package feed

import (
	"cmp"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

type ParserBackend string

const (
	ParserBackendPattern ParserBackend = "pattern"
	ParserBackendGofeed  ParserBackend = "gofeed"
)

// Parser turns a syndication document into entries in document order.
// sourceURL is used for diagnostics only.
type Parser interface {
	Run(data []byte, sourceURL string) ([]RawEntry, error)
}

var (
	_ Parser = (*PatternParser)(nil)
	_ Parser = (*GofeedParser)(nil)
)

func NewParser(backend ParserBackend) (Parser, error) {
	switch backend {
	case ParserBackendPattern, "":
		return NewPatternParser(), nil
	case ParserBackendGofeed:
		return NewGofeedParser(), nil
	default:
		return nil, fmt.Errorf("unknown parser backend %q", backend)
	}
}

type dialect string

const (
	dialectAtom dialect = "atom"
	dialectRSS  dialect = "rss"
)

var (
	atomEntryRe = regexp.MustCompile(`(?is)<entry(?:\s[^>]*)?>(.*?)</entry>`)
	rssItemRe   = regexp.MustCompile(`(?is)<item(?:\s[^>]*)?>(.*?)</item>`)
	atomLinkRe  = regexp.MustCompile(`(?is)<link\s[^>]*>`)
	relAttrRe   = regexp.MustCompile(`(?i)\brel\s*=\s*["']([^"']*)["']`)
	hrefAttrRe  = regexp.MustCompile(`(?i)\bhref\s*=\s*["']([^"']*)["']`)

	// Root elements match on the full name so prefixed siblings such as
	// <feedburner:info> do not count.
	atomRootRe = regexp.MustCompile(`(?i)<feed[\s>/]`)
	rssRootRe  = regexp.MustCompile(`(?i)<rss[\s>/]`)
)

// PatternParser extracts entries by structural pattern matching. It targets
// well-formed RSS 2.0 and Atom and does not validate markup.
type PatternParser struct {
	tags map[string]*regexp.Regexp
	now  func() time.Time
}

func NewPatternParser() *PatternParser {
	names := []string{"title", "link", "updated", "published", "pubDate", "content", "summary", "description", "content:encoded"}

	tags := make(map[string]*regexp.Regexp, len(names))
	for _, name := range names {
		quoted := regexp.QuoteMeta(name)
		tags[name] = regexp.MustCompile(`(?is)<` + quoted + `(?:\s[^>]*)?>(.*?)</` + quoted + `>`)
	}

	return &PatternParser{
		tags: tags,
		now:  time.Now,
	}
}

func (p *PatternParser) Run(data []byte, sourceURL string) ([]RawEntry, error) {
	doc := string(data)

	d := dialectRSS
	blockRe := rssItemRe
	if atomRootRe.MatchString(doc) {
		d = dialectAtom
		blockRe = atomEntryRe
	}

	matches := blockRe.FindAllStringSubmatch(doc, -1)
	if len(matches) == 0 {
		if !hasRootMarker(doc, d) {
			slog.Warn("Document is not a recognizable feed", "source", sourceURL, "format", d)
			return nil, NewError(KindFormat, sourceURL, fmt.Errorf("no %s root element and no entries", d))
		}

		slog.Debug("Feed has no entries", "source", sourceURL, "format", d)
		return []RawEntry{}, nil
	}

	entries := make([]RawEntry, 0, len(matches))
	for _, m := range matches {
		if d == dialectAtom {
			entries = append(entries, p.atomEntry(m[1]))
		} else {
			entries = append(entries, p.rssEntry(m[1]))
		}
	}

	slog.Debug("Feed parsed", "source", sourceURL, "format", d, "entries", len(entries))

	return entries, nil
}

func hasRootMarker(doc string, d dialect) bool {
	if d == dialectAtom {
		return atomRootRe.MatchString(doc)
	}
	return rssRootRe.MatchString(doc)
}

func (p *PatternParser) atomEntry(block string) RawEntry {
	return RawEntry{
		Title:   Normalize(p.tag(block, "title")),
		Link:    cmp.Or(p.atomLink(block), PlaceholderLink),
		PubDate: cmp.Or(p.tag(block, "updated"), p.tag(block, "published"), p.now().UTC().Format(time.RFC3339)),
		Content: cmp.Or(Normalize(cmp.Or(p.tag(block, "content"), p.tag(block, "summary"))), PlaceholderDescription),
	}
}

func (p *PatternParser) rssEntry(block string) RawEntry {
	return RawEntry{
		Title:   Normalize(p.tag(block, "title")),
		Link:    cmp.Or(Normalize(p.tag(block, "link")), PlaceholderLink),
		PubDate: cmp.Or(p.tag(block, "pubDate"), p.now().UTC().Format(time.RFC1123)),
		Content: cmp.Or(Normalize(cmp.Or(p.tag(block, "description"), p.tag(block, "content:encoded"))), PlaceholderDescription),
	}
}

// tag returns the trimmed text of the first matching element, or "".
func (p *PatternParser) tag(block, name string) string {
	re, ok := p.tags[name]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(StripCDATA(m[1]))
}

// atomLink prefers the rel="alternate" href and falls back to the first href.
func (p *PatternParser) atomLink(block string) string {
	var first string
	for _, link := range atomLinkRe.FindAllString(block, -1) {
		href := hrefAttrRe.FindStringSubmatch(link)
		if href == nil {
			continue
		}
		value := DecodeEntities(strings.TrimSpace(href[1]))
		if first == "" {
			first = value
		}
		if rel := relAttrRe.FindStringSubmatch(link); rel != nil && strings.EqualFold(rel[1], "alternate") {
			return value
		}
	}
	return first
}
