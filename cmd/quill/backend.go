package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/quill/internal/config"
	"github.com/crimson-sun/quill/internal/engine"
	"github.com/crimson-sun/quill/internal/engine/corrector"
	"github.com/crimson-sun/quill/internal/model"
)

// newCorrector loads the configured backend. Every failure is a
// *model.StartupError.
func newCorrector(ctx context.Context, c config.Config) (corrector.Corrector, error) {
	var (
		corr corrector.Corrector
		err  error
	)
	start := time.Now()

	switch c.Engine.Backend {
	case "onnx":
		paths := corrector.PathsFromDir(c.Engine.ModelDir)
		if c.Engine.ORTLib != "" {
			paths.ORTLib = c.Engine.ORTLib
		}
		params := model.DefaultGenerationParams()
		params.NumBeams = c.Engine.NumBeams
		params.MaxInputLength = c.Engine.MaxInputLength
		params.MaxOutputLength = c.Engine.MaxOutputLength
		corr, err = corrector.NewONNX(paths, params, c.Engine.Threads)
	case "gemini":
		corr, err = corrector.NewGemini(ctx, corrector.GeminiConfig{
			APIKey:          c.Remote.GeminiAPIKey,
			Model:           c.Remote.GeminiModel,
			BaseURL:         c.Remote.GeminiBaseURL,
			MaxOutputTokens: c.Engine.MaxOutputLength,
		})
	case "openai":
		corr, err = corrector.NewOpenAI(corrector.OpenAIConfig{
			APIKey:          c.Remote.OpenAIAPIKey,
			Model:           c.Remote.OpenAIModel,
			BaseURL:         c.Remote.OpenAIBaseURL,
			MaxOutputTokens: c.Engine.MaxOutputLength,
		})
	default:
		err = fmt.Errorf("unknown backend %q", c.Engine.Backend)
	}
	if err != nil {
		return nil, &model.StartupError{Component: c.Engine.Backend + " backend", Err: err}
	}

	slog.Info("correction backend ready",
		"backend", corr.Name(),
		"serialized", c.Engine.Serialize,
		"load_time", time.Since(start),
	)
	if c.Engine.Serialize {
		corr = corrector.Serialized(corr)
	}
	return corr, nil
}

// newEngine builds the pipeline around a freshly loaded backend. The caller
// owns the returned corrector and must Close it.
func newEngine(ctx context.Context, c config.Config) (*engine.Engine, corrector.Corrector, error) {
	corr, err := newCorrector(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(corr, nil), corr, nil
}
