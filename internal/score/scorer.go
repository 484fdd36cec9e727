package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"texforge/internal/tex"
)

// ErrNotConfigured is returned when no API key is available. Callers
// must surface it distinctly from a provider failure.
var ErrNotConfigured = errors.New("scoring service is not configured")

// Result is the structured feedback for a scored document.
type Result struct {
	Score           int      `json:"score"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

// Scorer asks an OpenAI chat model to rate resume text 0-100 and
// suggest improvements.
type Scorer struct {
	client *openai.Client
	model  string
	logger tex.Logger
}

const defaultModel = "gpt-4o-mini"

// NewScorerFromEnv builds a Scorer using OPENAI_API_KEY. With no key
// set, the Scorer is still returned but every Score call reports
// ErrNotConfigured.
func NewScorerFromEnv(model string, logger tex.Logger) *Scorer {
	if model == "" {
		model = defaultModel
		logger.Warn("score model not set, using default", "model", model)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Warn("OPENAI_API_KEY not set, scoring disabled")
		return &Scorer{model: model, logger: logger}
	}

	return &Scorer{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Configured reports whether Score calls can reach a provider.
func (s *Scorer) Configured() bool { return s.client != nil }

const systemPrompt = "You are an experienced resume reviewer. " +
	"Respond with a single JSON object with keys: " +
	`"score" (integer 0-100), "strengths", "improvements", "recommendations" (arrays of short strings). ` +
	"No prose outside the JSON."

// Score rates the given plain text. Provider responses that are not the
// requested JSON fall back to a fixed default score with generic
// feedback rather than failing the call.
func (s *Scorer) Score(ctx context.Context, plainText string) (*Result, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(plainText) == "" {
		return nil, fmt.Errorf("%w: text is required", tex.ErrValidation)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Review this resume:\n\n" + plainText},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("scoring provider returned no choices")
	}

	result := ParseResponse(resp.Choices[0].Message.Content)
	s.logger.Debug("document scored", "score", result.Score)
	return result, nil
}

// ParseResponse extracts a Result from provider output. Markdown code
// fences are tolerated; anything unparseable yields DefaultResult.
func ParseResponse(content string) *Result {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	// The model sometimes wraps the JSON in commentary; cut to the
	// outermost object before decoding.
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return DefaultResult()
	}
	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}
	return &result
}

// DefaultResult is the fallback when the provider answers with
// unstructured text.
func DefaultResult() *Result {
	return &Result{
		Score:           70,
		Strengths:       []string{"Document structure is readable"},
		Improvements:    []string{"Could not generate detailed feedback"},
		Recommendations: []string{"Try scoring again with more complete content"},
	}
}
