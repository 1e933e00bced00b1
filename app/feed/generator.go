package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
)

// Generator renders the stored digest as an RSS 2.0 document.
type Generator struct {
	selfLink string
	version  string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		selfLink: strings.TrimRight(baseURL, "/") + "/feed.xml",
		version:  version,
	}
}

func (g *Generator) Run(title, link string, items []Item) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", link, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Summarized release notes aggregated by %s", title), 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(g.selfLink)))

	lastBuildDate := time.Now().UTC()
	if len(items) > 0 {
		if t, ok := ParsePubDate(items[0].PubDate); ok {
			lastBuildDate = t
		}
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Digest/%s", g.version), 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item Item) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(item.Link)))
	xml.EscapeText(buf, []byte(item.Link))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.Link, 6)
	g.writeElement(buf, "description", cmp.Or(g.summaryText(item), item.Description, PlaceholderDescription), 6)

	if t, ok := ParsePubDate(item.PubDate); ok {
		g.writeElement(buf, "pubDate", t.Format(time.RFC1123Z), 6)
	}

	if item.Product != "" && item.Product != PlaceholderUnknown {
		g.writeElement(buf, "category", item.Product, 6)
	}
	g.writeElement(buf, "category", item.Category, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) summaryText(item Item) string {
	return strings.TrimSpace(strings.Join(item.Summary, "\n"))
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
