package corrector

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/crimson-sun/quill/internal/model"
)

// OpenAIConfig holds settings for the OpenAI backend. BaseURL points the
// client at any OpenAI-compatible server.
type OpenAIConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	MaxOutputTokens int
}

// OpenAICorrector delegates correction to an OpenAI-compatible chat API.
type OpenAICorrector struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates an OpenAI-backed corrector.
func NewOpenAI(cfg OpenAIConfig) (*OpenAICorrector, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("corrector: openai API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 512
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAICorrector{
		client:    openai.NewClientWithConfig(config),
		model:     cfg.Model,
		maxTokens: cfg.MaxOutputTokens,
	}, nil
}

func (o *OpenAICorrector) Name() string { return "openai" }

func (o *OpenAICorrector) Correct(ctx context.Context, text string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxCompletionTokens: o.maxTokens,
		// A literal 0 is dropped by omitempty and the server default applies.
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &model.EngineError{Engine: o.Name(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &model.EngineError{Engine: o.Name(), Err: fmt.Errorf("no choices in response")}
	}

	out := cleanReply(resp.Choices[0].Message.Content)
	if out == "" {
		return "", &model.EngineError{Engine: o.Name(), Err: errors.New("empty response")}
	}
	return out, nil
}

func (o *OpenAICorrector) Close() error { return nil }
