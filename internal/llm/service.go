// Package llm provides language model access for SQL generation and result
// summarization. A Manager walks a configurable chain of model candidates so
// a retired or overloaded model degrades to the next candidate instead of
// failing the request.
package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/tablechat/tablechat/internal/config"
	"github.com/tablechat/tablechat/internal/errors"
)

// Supported provider names.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Generator produces model output for a prompt. When jsonOnly is set the
// provider is asked to constrain its output to a JSON object where the API
// supports it.
type Generator interface {
	Generate(ctx context.Context, prompt string, jsonOnly bool) (string, error)
	Name() string
}

// NewGenerator builds the provider client for the configured provider.
func NewGenerator(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case ProviderGemini:
		return newGeminiClient(cfg), nil
	case ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	case ProviderOllama:
		return newOllamaClient(cfg), nil
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported LLM provider: %s", cfg.Provider)
	}
}

var fenceRe = regexp.MustCompile("(?s)```(?:sql|json)?\\s*(.*?)\\s*```")

// CleanResponse strips markdown code fences and surrounding whitespace from
// model output. Models add fences despite instructions often enough that the
// pipeline always runs output through this.
func CleanResponse(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	return trimmed
}
