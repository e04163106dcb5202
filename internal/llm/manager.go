package llm

import (
	"context"

	"github.com/tablechat/tablechat/internal/config"
	"github.com/tablechat/tablechat/internal/errors"
	"github.com/tablechat/tablechat/internal/logging"
)

// geminiModelCandidates is the fallback chain tried in order when no model
// is pinned in the configuration. Google retires model aliases on short
// notice, so a retired first choice degrades to the next instead of taking
// the whole generation capability down.
var geminiModelCandidates = []string{
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// Manager walks a chain of provider clients until one produces output. It
// implements Generator so callers cannot tell a chain from a single client.
type Manager struct {
	candidates []Generator
	logger     *logging.Logger
}

// NewManager builds the candidate chain for the configured provider. It
// returns (nil, nil) when generation is not configured, which callers treat
// as "use the deterministic fallbacks": remote providers need an API key,
// and only ollama works without one.
func NewManager(cfg config.LLMConfig, logger *logging.Logger) (*Manager, error) {
	if cfg.APIKey == "" && cfg.Provider != ProviderOllama {
		return nil, nil
	}

	models := []string{cfg.Model}
	if cfg.Provider == ProviderGemini && cfg.Model == "" {
		models = geminiModelCandidates
	}

	candidates := make([]Generator, 0, len(models))
	for _, model := range models {
		candidateCfg := cfg
		candidateCfg.Model = model

		gen, err := NewGenerator(candidateCfg)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, gen)
	}

	return &Manager{candidates: candidates, logger: logger}, nil
}

func (m *Manager) Name() string {
	if len(m.candidates) == 1 {
		return m.candidates[0].Name()
	}

	return "fallback-chain"
}

// Generate tries each candidate in order and returns the first success.
// A candidate failure is logged and the next candidate is tried; only when
// every candidate fails does the caller see an error.
func (m *Manager) Generate(ctx context.Context, prompt string, jsonOnly bool) (string, error) {
	var lastErr error

	for _, candidate := range m.candidates {
		output, err := candidate.Generate(ctx, prompt, jsonOnly)
		if err == nil {
			return output, nil
		}

		lastErr = err
		if m.logger != nil {
			m.logger.WithField("model", candidate.Name()).WithError(err).Warn("model candidate failed, trying next")
		}

		if ctx.Err() != nil {
			break
		}
	}

	return "", errors.Wrap(lastErr, errors.ErrTypeGenerationUnavailable, "all model candidates failed")
}
