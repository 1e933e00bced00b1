package feed

import (
	"cmp"
	"fmt"
	"regexp"
	"strings"
)

const DefaultSplitHeading = "h3"

var markupRe = regexp.MustCompile(`(?s)<[^>]*>`)

// Splitter breaks an entry whose content carries several sub-headings into
// one item per heading section. Sources that publish a monthly digest entry
// with one section per release are the reason this exists.
type Splitter struct {
	markerRe  *regexp.Regexp
	headingRe *regexp.Regexp
}

func NewSplitter(heading string) *Splitter {
	heading = regexp.QuoteMeta(cmp.Or(strings.TrimSpace(heading), DefaultSplitHeading))

	return &Splitter{
		markerRe:  regexp.MustCompile(`(?i)<` + heading + `(?:\s[^>]*)?>`),
		headingRe: regexp.MustCompile(`(?is)^<` + heading + `(?:\s[^>]*)?>(.*?)</` + heading + `>`),
	}
}

func (s *Splitter) Run(entries []RawEntry) []Item {
	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, s.split(entry)...)
	}
	return items
}

func (s *Splitter) split(entry RawEntry) []Item {
	parent := Item{
		Title:       entry.Title,
		Link:        entry.Link,
		Description: entry.Content,
		PubDate:     entry.PubDate,
	}

	bounds := s.markerRe.FindAllStringIndex(entry.Content, -1)
	if len(bounds) == 0 {
		return []Item{parent}
	}

	// Text before the first marker is preamble and is dropped.
	items := make([]Item, 0, len(bounds))
	for i, b := range bounds {
		end := len(entry.Content)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}
		section := strings.TrimSpace(entry.Content[b[0]:end])

		link := PlaceholderLink
		if parent.Link != PlaceholderLink {
			link = fmt.Sprintf("%s-%d", parent.Link, i)
		}

		items = append(items, Item{
			Title:       cmp.Or(s.headingText(section), parent.Title),
			Link:        link,
			Description: section,
			PubDate:     parent.PubDate,
		})
	}

	return items
}

func (s *Splitter) headingText(section string) string {
	m := s.headingRe.FindStringSubmatch(section)
	if m == nil {
		return ""
	}
	text := markupRe.ReplaceAllString(m[1], "")
	return strings.Join(strings.Fields(Normalize(text)), " ")
}
