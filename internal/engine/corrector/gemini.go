package corrector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/crimson-sun/quill/internal/model"
)

// instruction is sent to remote chat models. It asks for the corrected
// sentence only so the reply can be used verbatim.
const instruction = "You are a grammar correction engine. Rewrite the user's sentence with " +
	"spelling, grammar, punctuation and capitalization corrected. Keep the meaning and " +
	"wording otherwise unchanged. Reply with the corrected sentence only, without quotes " +
	"or commentary. If the sentence is already correct, repeat it unchanged."

// GeminiConfig holds settings for the Gemini backend. BaseURL overrides the
// API endpoint, for proxies and tests.
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	MaxOutputTokens int
}

// GeminiCorrector delegates correction to the Gemini API.
type GeminiCorrector struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini creates a Gemini-backed corrector.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiCorrector, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("corrector: gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 512
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("corrector: create Gemini client: %w", err)
	}

	return &GeminiCorrector{
		client:    client,
		model:     cfg.Model,
		maxTokens: int32(cfg.MaxOutputTokens),
	}, nil
}

func (g *GeminiCorrector) Name() string { return "gemini" }

// Correct sends text with temperature 0 so replies are as stable as the
// provider allows.
func (g *GeminiCorrector) Correct(ctx context.Context, text string) (string, error) {
	var temp float32
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxTokens,
		Temperature:     &temp,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		},
	}
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &model.EngineError{Engine: g.Name(), Err: err}
	}

	out := cleanReply(result.Text())
	if out == "" {
		return "", &model.EngineError{Engine: g.Name(), Err: errors.New("empty response")}
	}
	return out, nil
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (g *GeminiCorrector) Close() error { return nil }

// cleanReply strips whitespace and one layer of wrapping quotes that chat
// models sometimes add.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '`' && s[len(s)-1] == '`') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
