package summary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	reply  string
	err    error
	prompt string
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompt += text.Text
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLLMSummarizer(t *testing.T) {
	model := &fakeModel{reply: "Here you go:\n```json\n{\n  \"product\": \"Widget\", // the product\n  \"title\": \"Widget 3.0\",\n  \"summary\": [\"Faster\", \" \", \"Smaller\",],\n}\n```"}

	res, err := NewLLMSummarizer(model).Summarize(context.Background(), "<h3>Widget 3.0</h3><p>Faster and smaller.</p>")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if res.Product != "Widget" || res.Title != "Widget 3.0" {
		t.Errorf("Unexpected result: %+v", res)
	}
	if len(res.Summary) != 2 {
		t.Errorf("Expected blank bullets dropped, got %v", res.Summary)
	}
	if !strings.Contains(model.prompt, "Faster and smaller.") {
		t.Error("Expected note content in prompt")
	}
	if strings.Contains(model.prompt, "<p>") {
		t.Error("Expected markup converted before prompting")
	}
}

func TestLLMSummarizerErrors(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"model error", &fakeModel{err: errors.New("rate limited")}},
		{"no json", &fakeModel{reply: "I cannot help with that."}},
		{"bad json", &fakeModel{reply: `{"summary": "not a list"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLLMSummarizer(tt.model).Summarize(context.Background(), "<p>x</p>"); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestNewSummarizer(t *testing.T) {
	s, err := New(Options{Provider: "none"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := s.Summarize(context.Background(), "x"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}

	if _, err := New(Options{Provider: "gemini"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"prefix {\"a\": [1, 2,]} suffix", `{"a": [1, 2]}`},
		{"{\"url\": \"http://x\" // note\n}", "{\"url\": \"http://x\"\n}"},
		{"no json here", ""},
	}

	for _, tt := range tests {
		if got := ExtractJSON(tt.input); got != tt.expected {
			t.Errorf("ExtractJSON(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii", "abcdef", 3, "abc"},
		{"inside rune", "aé", 2, "a"},
		{"rune boundary", "aéb", 3, "aé"},
		{"inside wide rune", "日本", 4, "日"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateUTF8(tt.input, tt.n); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestLLMSummarizerTruncatesOnRuneBoundary(t *testing.T) {
	model := &fakeModel{reply: `{"title": "Notes", "summary": ["ok"]}`}

	note := "<p>a" + strings.Repeat("é", maxPromptContent) + "</p>"
	if _, err := NewLLMSummarizer(model).Summarize(context.Background(), note); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !utf8.ValidString(model.prompt) {
		t.Error("Expected prompt to be valid UTF-8 after truncation")
	}
}
