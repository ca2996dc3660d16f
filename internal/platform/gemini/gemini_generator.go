// Package gemini implements the generation.ArticleGenerator interface
// using Google's Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/config"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/generation"
	"google.golang.org/genai"
)

// ErrEmptyKeyword is returned when an empty keyword is passed to the generator.
var ErrEmptyKeyword = errors.New("keyword cannot be empty")

// articlePrompt instructs the model to write a long-form article and
// return it as JSON so the response can be parsed deterministically.
const articlePrompt = `You are a professional content writer. Write a detailed,
well-structured long-form article about the following keyword.

Keyword: {{.Keyword}}
{{if .Settings}}Writer settings (JSON): {{.Settings}}{{end}}

Respond with a single JSON object and nothing else, in this exact shape:
{"title": "<article title>", "content": "<full article body in markdown>"}
`

// GeminiGenerator implements generation.ArticleGenerator using the
// Gemini API.
type GeminiGenerator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

// Ensure GeminiGenerator implements generation.ArticleGenerator
var _ generation.ArticleGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a new GeminiGenerator with the provided
// configuration, or an error if the configuration is invalid or the
// client cannot be created.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("article").Parse(articlePrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:         logger.With("component", "gemini_generator"),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// GenerateArticle implements generation.ArticleGenerator. It builds the
// prompt, calls the Gemini API with retry, and maps the parsed response
// into a domain.Article owned by the given user.
func (g *GeminiGenerator) GenerateArticle(
	ctx context.Context,
	userID uuid.UUID,
	keyword string,
	settings json.RawMessage,
) (*domain.Article, error) {
	prompt, err := g.createPrompt(ctx, keyword, settings)
	if err != nil {
		return nil, err
	}

	parsed, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if parsed.Content == "" {
		return nil, fmt.Errorf("%w: response contained no article content",
			generation.ErrInvalidResponse)
	}

	article, err := domain.NewArticle(userID, keyword, parsed.Title, parsed.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: generated article failed validation: %v",
			generation.ErrInvalidResponse, err)
	}

	return article, nil
}

// createPrompt renders the prompt template for the given keyword and
// opaque settings payload.
func (g *GeminiGenerator) createPrompt(ctx context.Context, keyword string, settings json.RawMessage) (string, error) {
	if keyword == "" {
		return "", ErrEmptyKeyword
	}

	data := promptData{
		Keyword:  keyword,
		Settings: string(settings),
	}

	g.logger.DebugContext(ctx, "generating prompt from template",
		"keyword", keyword,
		"settings_length", len(settings))

	var promptBuffer bytes.Buffer
	if err := g.promptTemplate.Execute(&promptBuffer, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return promptBuffer.String(), nil
}

// callGeminiWithRetry calls the Gemini API with exponential backoff and
// jitter. Permanent errors (safety blocks, malformed responses) return
// immediately; transient errors retry up to MaxRetries times.
func (g *GeminiGenerator) callGeminiWithRetry(ctx context.Context, prompt string) (*responseSchema, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		parsed, transient, err := g.callGemini(ctx, prompt)
		if err == nil {
			return parsed, nil
		}
		lastErr = err

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"transient", transient,
			"error", err)

		if !transient {
			return nil, err
		}

		if attempt == maxRetries {
			break
		}

		// Exponential backoff with jitter in [0.5, 1.5) of the base delay.
		delay := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay *= 0.5 + rng.Float64()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		case <-time.After(time.Duration(delay * float64(time.Second))):
		}
	}

	return nil, fmt.Errorf("%w: retries exhausted: %v", generation.ErrTransientFailure, lastErr)
}

// callGemini performs a single API call. The second return value
// reports whether the error is worth retrying.
func (g *GeminiGenerator) callGemini(ctx context.Context, prompt string) (*responseSchema, bool, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		// API-level errors (rate limits, timeouts) are assumed transient.
		return nil, true, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, false, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, false, fmt.Errorf("%w: generation stopped by safety filters",
			generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return nil, false, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text string
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	text = stripCodeFence(text)

	var parsed responseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, false, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}

	return &parsed, false, nil
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON answer in one.
func stripCodeFence(s string) string {
	const fence = "```"
	trimmed := bytes.TrimSpace([]byte(s))
	if !bytes.HasPrefix(trimmed, []byte(fence)) {
		return s
	}
	trimmed = bytes.TrimPrefix(trimmed, []byte(fence))
	trimmed = bytes.TrimPrefix(trimmed, []byte("json"))
	trimmed = bytes.TrimSuffix(bytes.TrimSpace(trimmed), []byte(fence))
	return string(bytes.TrimSpace(trimmed))
}
