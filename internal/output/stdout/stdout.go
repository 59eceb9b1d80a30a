package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/quill/internal/model"
	"github.com/crimson-sun/quill/internal/output"
)

// Output writes results to stdout, one per line.
type Output struct {
	mu     sync.Mutex
	w      io.Writer
	enc    *json.Encoder
	format output.Format
}

// New creates a stdout Output with the given format and optional
// pretty-printed JSON.
func New(format output.Format, pretty bool) *Output {
	return NewWriter(os.Stdout, format, pretty)
}

// NewWriter is New over an arbitrary writer.
func NewWriter(w io.Writer, format output.Format, pretty bool) *Output {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{w: w, enc: enc, format: format}
}

func (o *Output) Write(_ context.Context, res model.CorrectionResult) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == output.Text {
		if _, err := fmt.Fprintln(o.w, output.FormatText(res)); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
		return nil
	}
	if err := o.enc.Encode(output.FromResult(res)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
