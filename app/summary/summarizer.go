package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Result is the structured output of one summarization call. Empty fields
// mean the collaborator did not supply them.
type Result struct {
	Product      string   `json:"product"`
	Subcomponent string   `json:"subcomponent"`
	Title        string   `json:"title"`
	PubDate      string   `json:"pubDate"`
	Summary      []string `json:"summary"`
	Category     string   `json:"category"`
}

// Summarizer turns an HTML fragment into structured release-note fields.
// Implementations must not retry internally.
type Summarizer interface {
	Summarize(ctx context.Context, html string) (*Result, error)
}

var ErrDisabled = errors.New("summarization is disabled")

// Disabled always fails, so every long item takes the fallback path.
type Disabled struct{}

func (Disabled) Summarize(ctx context.Context, html string) (*Result, error) {
	return nil, ErrDisabled
}

type Options struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func New(opts Options) (Summarizer, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "none":
		return Disabled{}, nil
	case "openai":
		llmOpts := []openai.Option{openai.WithToken(opts.APIKey)}
		if opts.Model != "" {
			llmOpts = append(llmOpts, openai.WithModel(opts.Model))
		}
		if opts.BaseURL != "" {
			llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
		}
		llm, err := openai.New(llmOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		return NewLLMSummarizer(llm), nil
	case "ollama":
		model := opts.Model
		if model == "" {
			model = "mistral"
		}
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama client: %w", err)
		}
		return NewLLMSummarizer(llm), nil
	default:
		return nil, fmt.Errorf("unknown summarization provider %q", opts.Provider)
	}
}
