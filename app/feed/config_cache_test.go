package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, "widgets.yml", `
url: "https://example.com/feed.xml"

settings:
  enabled: true

filters:
  - field: "title"
    includes:
      - "release"
`)
	writeConfig(t, tempDir, "docs.yml", `
kind: webpage
url: "https://example.com/whats-new"

settings:
  enabled: true
`)
	writeConfig(t, tempDir, "old.yml", `
url: "https://example.com/old.xml"

settings:
  enabled: false
`)
	writeConfig(t, tempDir, "README.md", "not a config")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 3 {
		t.Errorf("Expected 3 configs, got %d", configCache.GetConfigCount())
	}

	widgets, err := configCache.GetConfig("widgets")
	if err != nil {
		t.Fatal(err)
	}
	if widgets.Kind != SourceKindFeed {
		t.Errorf("Expected default kind feed, got %s", widgets.Kind)
	}
	if len(widgets.Filters) != 1 {
		t.Errorf("Expected 1 filter, got %d", len(widgets.Filters))
	}

	sources := configCache.EnabledSources()
	if len(sources) != 2 {
		t.Fatalf("Expected 2 enabled sources, got %d", len(sources))
	}
	if sources[0].URL != "https://example.com/whats-new" || sources[0].Kind != SourceKindWebpage {
		t.Errorf("Expected docs first by name, got %+v", sources[0])
	}
}

func TestConfigCacheInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing url", "settings:\n  enabled: true\n"},
		{"bad scheme", "url: \"ftp://example.com/feed\"\n"},
		{"bad kind", "kind: podcast\nurl: \"https://example.com/feed\"\n"},
		{"bad filter", "url: \"https://example.com/feed\"\nfilters:\n  - field: \"author\"\n    includes: [\"x\"]\n"},
		{"bad yaml", "url: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeConfig(t, tempDir, "broken.yml", tt.content)

			if err := NewConfigCache(tempDir).Run(); err == nil {
				t.Error("Expected error for invalid config")
			}
		})
	}
}

func TestConfigCacheMissingDir(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "absent"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got %v", err)
	}
	if len(configCache.EnabledSources()) != 0 {
		t.Error("Expected no sources")
	}
	if _, err := configCache.GetConfig("anything"); err == nil {
		t.Error("Expected error for unknown config")
	}
}
