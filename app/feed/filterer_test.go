package feed

import "testing"

func TestFiltererNoFilters(t *testing.T) {
	items := []Item{{Title: "a", Link: "https://e.com/a"}, {Title: "b", Link: "https://e.com/b"}}

	kept := NewFilterer().Run(items, Source{Kind: SourceKindFeed, URL: "https://e.com"})
	if len(kept) != 2 {
		t.Errorf("Expected all items kept, got %d", len(kept))
	}
}

func TestFiltererIncludesAndExcludes(t *testing.T) {
	source := Source{
		Kind: SourceKindFeed,
		URL:  "https://e.com",
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"release", "update"}},
			{Field: "description", Excludes: []string{"BETA"}},
		},
	}

	items := []Item{
		{Title: "Release 1.0", Description: "stable"},
		{Title: "Weekly Update", Description: "beta channel only"},
		{Title: "Blog post", Description: "unrelated"},
		{Title: "RELEASE 2.0", Description: "stable again"},
	}

	kept := NewFilterer().Run(items, source)
	if len(kept) != 2 {
		t.Fatalf("Expected 2 items kept, got %d", len(kept))
	}
	if kept[0].Title != "Release 1.0" || kept[1].Title != "RELEASE 2.0" {
		t.Errorf("Unexpected kept items: %v", kept)
	}
}

func TestFiltererUnknownField(t *testing.T) {
	f := NewFilterer()
	if got := f.getFieldValue(Item{Title: "x"}, "author"); got != "" {
		t.Errorf("Expected empty value for unknown field, got %q", got)
	}
}

func TestValidateFilters(t *testing.T) {
	valid := []ConfigFilter{{Field: "link", Excludes: []string{"/ads/"}}}
	if err := ValidateFilters(valid); err != nil {
		t.Errorf("Expected valid filters, got %v", err)
	}

	if err := ValidateFilters([]ConfigFilter{{Field: "author", Includes: []string{"x"}}}); err == nil {
		t.Error("Expected error for invalid field")
	}
	if err := ValidateFilters([]ConfigFilter{{Field: "title"}}); err == nil {
		t.Error("Expected error for filter without rules")
	}
}
