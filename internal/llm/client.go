package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tablechat/tablechat/internal/config"
	"github.com/tablechat/tablechat/internal/errors"
)

const (
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultOllamaBaseURL    = "http://localhost:11434"

	anthropicVersion = "2023-06-01"
	maxOutputTokens  = 2048
)

func newHTTPClient(cfg config.LLMConfig) *http.Client {
	timeout := 60 * time.Second
	if d, err := time.ParseDuration(cfg.RequestTimeout); err == nil && d > 0 {
		timeout = d
	}

	return &http.Client{Timeout: timeout}
}

func baseURL(cfg config.LLMConfig, fallback string) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}

	return fallback
}

// postJSON sends the request body and decodes the response into out,
// translating transport and HTTP-status failures into generation errors.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeGenerationUnavailable, "LLM request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf(errors.ErrTypeGenerationUnavailable,
			"LLM returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrTypeMalformedGeneration, "failed to decode LLM response")
	}

	return nil
}

// geminiClient talks to the Google Generative Language API.
type geminiClient struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

func newGeminiClient(cfg config.LLMConfig) *geminiClient {
	return &geminiClient{
		client:  newHTTPClient(cfg),
		baseURL: baseURL(cfg, defaultGeminiBaseURL),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
	}
}

func (c *geminiClient) Name() string {
	return fmt.Sprintf("%s/%s", ProviderGemini, c.model)
}

func (c *geminiClient) Generate(ctx context.Context, prompt string, jsonOnly bool) (string, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Parts []part `json:"parts"`
	}

	body := map[string]interface{}{
		"contents": []content{{Parts: []part{{Text: prompt}}}},
	}
	genConfig := map[string]interface{}{"maxOutputTokens": maxOutputTokens}
	if jsonOnly {
		genConfig["responseMimeType"] = "application/json"
	}
	body["generationConfig"] = genConfig

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	headers := map[string]string{"x-goog-api-key": c.apiKey}
	if err := postJSON(ctx, c.client, url, headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New(errors.ErrTypeMalformedGeneration, "LLM response contained no candidates")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// openAIClient talks to the OpenAI chat completions API.
type openAIClient struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

func newOpenAIClient(cfg config.LLMConfig) *openAIClient {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &openAIClient{
		client:  newHTTPClient(cfg),
		baseURL: baseURL(cfg, defaultOpenAIBaseURL),
		model:   model,
		apiKey:  cfg.APIKey,
	}
}

func (c *openAIClient) Name() string {
	return fmt.Sprintf("%s/%s", ProviderOpenAI, c.model)
}

func (c *openAIClient) Generate(ctx context.Context, prompt string, jsonOnly bool) (string, error) {
	body := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": maxOutputTokens,
	}
	if jsonOnly {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/chat/completions", headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", errors.New(errors.ErrTypeMalformedGeneration, "LLM response contained no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// anthropicClient talks to the Anthropic messages API.
type anthropicClient struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

func newAnthropicClient(cfg config.LLMConfig) *anthropicClient {
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	return &anthropicClient{
		client:  newHTTPClient(cfg),
		baseURL: baseURL(cfg, defaultAnthropicBaseURL),
		model:   model,
		apiKey:  cfg.APIKey,
	}
}

func (c *anthropicClient) Name() string {
	return fmt.Sprintf("%s/%s", ProviderAnthropic, c.model)
}

func (c *anthropicClient) Generate(ctx context.Context, prompt string, jsonOnly bool) (string, error) {
	// The messages API has no JSON response mode; the prompt carries the
	// format instructions and CleanResponse handles stray fences.
	_ = jsonOnly

	body := map[string]interface{}{
		"model":      c.model,
		"max_tokens": maxOutputTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/messages", headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Content) == 0 {
		return "", errors.New(errors.ErrTypeMalformedGeneration, "LLM response contained no content")
	}

	return result.Content[0].Text, nil
}

// ollamaClient talks to a local Ollama server.
type ollamaClient struct {
	client  *http.Client
	baseURL string
	model   string
}

func newOllamaClient(cfg config.LLMConfig) *ollamaClient {
	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}

	return &ollamaClient{
		client:  newHTTPClient(cfg),
		baseURL: baseURL(cfg, defaultOllamaBaseURL),
		model:   model,
	}
}

func (c *ollamaClient) Name() string {
	return fmt.Sprintf("%s/%s", ProviderOllama, c.model)
}

func (c *ollamaClient) Generate(ctx context.Context, prompt string, jsonOnly bool) (string, error) {
	body := map[string]interface{}{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	}
	if jsonOnly {
		body["format"] = "json"
	}

	var result struct {
		Response string `json:"response"`
	}

	if err := postJSON(ctx, c.client, c.baseURL+"/api/generate", nil, body, &result); err != nil {
		return "", err
	}

	if result.Response == "" {
		return "", errors.New(errors.ErrTypeMalformedGeneration, "LLM response was empty")
	}

	return result.Response, nil
}
