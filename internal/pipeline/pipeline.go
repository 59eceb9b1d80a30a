package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/crimson-sun/quill/internal/model"
	"github.com/crimson-sun/quill/internal/output"
)

// maxLine bounds a single input line. Longer lines fail the scan.
const maxLine = 1 << 20

// Processor corrects one request.
type Processor interface {
	Process(ctx context.Context, req model.CorrectionRequest) (model.CorrectionResult, error)
}

// Pipeline feeds texts through a processor into an output.
// A text the engine cannot correct is logged and skipped.
type Pipeline struct {
	proc   Processor
	output output.Output

	processed   atomic.Int64
	skippedText atomic.Int64
}

// New creates a Pipeline from the given components.
func New(proc Processor, out output.Output) *Pipeline {
	return &Pipeline{proc: proc, output: out}
}

// Run corrects each text in order.
func (p *Pipeline) Run(ctx context.Context, texts []string) error {
	for _, text := range texts {
		if err := p.handle(ctx, text); err != nil {
			return err
		}
	}
	return nil
}

// Stream corrects r line by line until EOF or ctx is cancelled.
// Blank lines are ignored.
func (p *Pipeline) Stream(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := p.handle(ctx, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("pipeline read: %w", err)
	}
	return nil
}

// handle returns an error only when the run must stop.
func (p *Pipeline) handle(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := p.proc.Process(ctx, model.CorrectionRequest{Text: text})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.skippedText.Add(1)
		slog.Warn("skipping text", "error", err, "length", len(text))
		return nil
	}

	if err := p.output.Write(ctx, res); err != nil {
		return fmt.Errorf("pipeline output: %w", err)
	}
	p.processed.Add(1)
	return nil
}

// Processed reports how many texts were corrected and written.
func (p *Pipeline) Processed() int64 { return p.processed.Load() }

// Skipped reports how many texts failed to correct.
func (p *Pipeline) Skipped() int64 { return p.skippedText.Load() }

// ErrSkipped is returned by Close when at least one text was skipped.
var ErrSkipped = errors.New("some texts were skipped")

// Close shuts down the output and reports skipped texts.
func (p *Pipeline) Close() error {
	err := p.output.Close()
	if n := p.skippedText.Load(); n > 0 {
		slog.Info("pipeline closed", "processed", p.processed.Load(), "skipped", n)
		return errors.Join(err, fmt.Errorf("%w: %d", ErrSkipped, n))
	}
	return err
}
