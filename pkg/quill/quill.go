package quill

import (
	"context"
	"fmt"
	"io"

	"github.com/crimson-sun/quill/internal/engine"
	"github.com/crimson-sun/quill/internal/engine/corrector"
	"github.com/crimson-sun/quill/internal/model"
)

// Quill corrects sentences and labels the change.
// Safe for concurrent use.
type Quill struct {
	engine    *engine.Engine
	corrector corrector.Corrector
}

// New creates a Quill instance. Unless WithCorrector is given it loads the
// local ONNX model, which is expensive: create once, reuse across requests.
func New(opts ...Option) (*Quill, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var c corrector.Corrector
	if o.custom != nil {
		c = customCorrector{o.custom}
	} else {
		onnx, err := corrector.NewONNX(resolvePaths(o), o.params, o.threads)
		if err != nil {
			return nil, fmt.Errorf("quill: %w", err)
		}
		c = onnx
	}
	if o.serialized {
		c = corrector.Serialized(c)
	}

	return &Quill{engine: engine.New(c, nil), corrector: c}, nil
}

// Correct corrects a single sentence. Empty input returns ErrNoText.
func (q *Quill) Correct(ctx context.Context, text string) (Result, error) {
	res, err := q.engine.Process(ctx, model.CorrectionRequest{Text: text})
	if err != nil {
		return Result{}, err
	}
	return resultFromModel(res), nil
}

// CorrectBatch corrects sentences in order. The first failure aborts the
// batch.
func (q *Quill) CorrectBatch(ctx context.Context, texts []string) ([]Result, error) {
	reqs := make([]model.CorrectionRequest, len(texts))
	for i, t := range texts {
		reqs[i] = model.CorrectionRequest{Text: t}
	}
	out, err := q.engine.ProcessBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(out))
	for i, r := range out {
		results[i] = resultFromModel(r)
	}
	return results, nil
}

// Classify labels an already corrected pair without running the model.
func (q *Quill) Classify(original, corrected string) string {
	return string(q.engine.Classify(original, corrected))
}

// Labels returns the vocabulary in rule order.
func (q *Quill) Labels() []string {
	labels := q.engine.Labels()
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}

// Close releases model resources (ONNX runtime, memory).
// Must be called when the Quill instance is no longer needed.
func (q *Quill) Close() error {
	return q.corrector.Close()
}

// customCorrector adapts a user backend to the internal interface.
type customCorrector struct {
	inner Corrector
}

func (c customCorrector) Correct(ctx context.Context, text string) (string, error) {
	out, err := c.inner.Correct(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", &model.EngineError{Engine: c.Name(), Err: err}
	}
	return out, nil
}

func (c customCorrector) Name() string { return "custom" }

func (c customCorrector) Close() error {
	if cl, ok := c.inner.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
