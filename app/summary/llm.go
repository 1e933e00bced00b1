package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/tmc/langchaingo/llms"
)

const maxPromptContent = 12000

const promptTemplate = `You summarize software release notes.

Read the release note below and answer with a single JSON object and nothing else:
{
  "product": "name of the product the note is about",
  "subcomponent": "affected part of the product, or empty",
  "title": "short title of the change",
  "pubDate": "release date in RFC3339 if the note states one, else empty",
  "category": "one of: feature, fix, deprecation, security, other",
  "summary": ["up to five short bullet points"]
}

Release note:
%s`

// LLMSummarizer asks a language model for the structured fields.
type LLMSummarizer struct {
	llm       llms.Model
	converter *md.Converter
}

func NewLLMSummarizer(llm llms.Model) *LLMSummarizer {
	return &LLMSummarizer{
		llm:       llm,
		converter: md.NewConverter("", true, nil),
	}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, html string) (*Result, error) {
	content, err := s.converter.ConvertString(html)
	if err != nil {
		slog.Debug("Markdown conversion failed, sending raw HTML", "error", err)
		content = html
	}
	content = truncateUTF8(content, maxPromptContent)

	reply, err := llms.GenerateFromSinglePrompt(ctx, s.llm, fmt.Sprintf(promptTemplate, content),
		llms.WithTemperature(0.1))
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	raw := ExtractJSON(reply)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to decode model reply: %w", err)
	}

	result.Summary = nonEmpty(result.Summary)
	return &result, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func nonEmpty(lines []string) []string {
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
