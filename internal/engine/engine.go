package engine

import (
	"context"
	"strings"

	"github.com/crimson-sun/quill/internal/engine/classifier"
	"github.com/crimson-sun/quill/internal/engine/corrector"
	"github.com/crimson-sun/quill/internal/model"
)

// Engine orchestrates the validate → correct → classify pipeline.
// It holds no per-request state and is safe for concurrent use as long as
// the corrector is.
type Engine struct {
	corrector  corrector.Corrector
	classifier *classifier.Classifier
}

// New creates an Engine with the provided components.
func New(c corrector.Corrector, cls *classifier.Classifier) *Engine {
	if cls == nil {
		cls = classifier.New(nil)
	}
	return &Engine{
		corrector:  c,
		classifier: cls,
	}
}

// Process corrects a single request and labels the change.
// Empty or whitespace-only text fails with model.ErrValidation before the
// corrector is invoked.
func (e *Engine) Process(ctx context.Context, req model.CorrectionRequest) (model.CorrectionResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return model.CorrectionResult{}, model.ErrValidation
	}

	out, err := e.corrector.Correct(ctx, req.Text)
	if err != nil {
		return model.CorrectionResult{}, err
	}
	corrected := NormalizeWhitespace(out)

	return model.CorrectionResult{
		OriginalText:  req.Text,
		CorrectedText: corrected,
		ErrorType:     e.classifier.Classify(req.Text, corrected),
	}, nil
}

// ProcessBatch corrects requests one after another. The first failure aborts
// the batch.
func (e *Engine) ProcessBatch(ctx context.Context, reqs []model.CorrectionRequest) ([]model.CorrectionResult, error) {
	results := make([]model.CorrectionResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := e.Process(ctx, req)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Classify labels an already corrected pair without invoking the corrector.
func (e *Engine) Classify(original, corrected string) model.ErrorType {
	return e.classifier.Classify(original, corrected)
}

// Labels returns the decision list labels in evaluation order.
func (e *Engine) Labels() []model.ErrorType {
	rules := e.classifier.Rules()
	labels := make([]model.ErrorType, len(rules))
	for i, r := range rules {
		labels[i] = r.Label
	}
	return labels
}

// CorrectorName reports which backend serves corrections.
func (e *Engine) CorrectorName() string {
	return e.corrector.Name()
}
