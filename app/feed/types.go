package feed

import (
	"fmt"
	"net/url"
	"strings"
)

// Placeholders substituted by the parser when an entry lacks a field.
const (
	PlaceholderLink        = "#"
	PlaceholderDescription = "No description available"
	PlaceholderUnknown     = "unknown"
)

type SourceKind string

const (
	SourceKindFeed    SourceKind = "feed"
	SourceKindWebpage SourceKind = "webpage"
)

// Source is one entry of the administered source list. Identity is URL.
type Source struct {
	Kind    SourceKind     `json:"kind" yaml:"kind"`
	URL     string         `json:"url" yaml:"url"`
	Filters []ConfigFilter `json:"filters,omitempty" yaml:"filters,omitempty"`
}

func (s Source) Validate() error {
	if s.Kind != SourceKindFeed && s.Kind != SourceKindWebpage {
		return NewError(KindInvalidInput, s.URL, fmt.Errorf("unknown source kind %q", s.Kind))
	}

	u, err := url.ParseRequestURI(strings.TrimSpace(s.URL))
	if err != nil {
		return NewError(KindInvalidInput, s.URL, fmt.Errorf("malformed source URL: %w", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewError(KindInvalidInput, s.URL, fmt.Errorf("unsupported URL scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return NewError(KindInvalidInput, s.URL, fmt.Errorf("source URL has no host"))
	}
	if err := ValidateFilters(s.Filters); err != nil {
		return NewError(KindInvalidInput, s.URL, err)
	}

	return nil
}

// RawEntry is the parser's intermediate unit. PubDate keeps the
// source-native timestamp text.
type RawEntry struct {
	Title   string
	Link    string
	PubDate string
	Content string
}

// Item is the normalized, enriched unit handed to storage and readers.
type Item struct {
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	Description  string   `json:"description"`
	PubDate      string   `json:"pubDate"`
	Summary      []string `json:"summary,omitempty"`
	Product      string   `json:"product,omitempty"`
	Subcomponent string   `json:"subcomponent,omitempty"`
	Category     string   `json:"category,omitempty"`
}

// Valid reports whether the item may leave the pipeline.
func (i Item) Valid() bool {
	return strings.TrimSpace(i.Title) != "" &&
		strings.TrimSpace(i.Link) != "" &&
		i.Link != PlaceholderLink
}

// Seed configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Kind     SourceKind     `yaml:"kind"`
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled bool `yaml:"enabled"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field" json:"field"`
	Includes []string `yaml:"includes" json:"includes,omitempty"`
	Excludes []string `yaml:"excludes" json:"excludes,omitempty"`
}

func (c *Config) Source() Source {
	return Source{
		Kind:    c.Kind,
		URL:     strings.TrimSpace(c.URL),
		Filters: c.Filters,
	}
}
