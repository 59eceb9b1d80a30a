package quill

import (
	"context"

	"github.com/crimson-sun/quill/internal/engine/corrector"
	"github.com/crimson-sun/quill/internal/model"
)

// Corrector is a custom correction backend. If it also implements
// io.Closer, Close is called when the Quill instance is closed.
type Corrector interface {
	Correct(ctx context.Context, text string) (string, error)
}

type options struct {
	modelDir   string
	paths      *corrector.Paths
	ortLib     string
	threads    int
	params     model.GenerationParams
	custom     Corrector
	serialized bool
}

// Option configures a Quill instance.
type Option func(*options)

// WithModelDir sets the directory containing model files.
// Expects: encoder_model.onnx, decoder_model.onnx, tokenizer.json, config.json.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithModelPaths sets explicit paths for each model file.
// Use this when model files aren't in the default directory layout.
func WithModelPaths(encoder, decoder, tokenizer, config string) Option {
	return func(o *options) {
		o.paths = &corrector.Paths{
			Encoder:   encoder,
			Decoder:   decoder,
			Tokenizer: tokenizer,
			Config:    config,
		}
	}
}

// WithORTLibrary sets the path of the ONNX Runtime shared library.
func WithORTLibrary(path string) Option {
	return func(o *options) {
		o.ortLib = path
	}
}

// WithThreads sets the intra-op thread count of the ONNX sessions. Default: 4.
func WithThreads(n int) Option {
	return func(o *options) {
		o.threads = n
	}
}

// WithBeams sets the beam width. Default: 4.
func WithBeams(n int) Option {
	return func(o *options) {
		o.params.NumBeams = n
	}
}

// WithMaxLength sets the input truncation and output generation limits in
// tokens. Default: 512 each.
func WithMaxLength(input, output int) Option {
	return func(o *options) {
		o.params.MaxInputLength = input
		o.params.MaxOutputLength = output
	}
}

// WithCorrector replaces the local model with a custom backend. Model
// options are ignored.
func WithCorrector(c Corrector) Option {
	return func(o *options) {
		o.custom = c
	}
}

// WithSerializedAccess controls whether corrections take turns on the
// backend. Default: true. Disable only for backends that are safe for
// concurrent use.
func WithSerializedAccess(on bool) Option {
	return func(o *options) {
		o.serialized = on
	}
}

func defaultOptions() options {
	return options{
		threads:    4,
		params:     model.DefaultGenerationParams(),
		serialized: true,
	}
}

// resolvePaths determines the model file paths from the configured options.
// Explicit paths take precedence over modelDir.
func resolvePaths(o options) corrector.Paths {
	var p corrector.Paths
	if o.paths != nil {
		p = *o.paths
	} else {
		dir := o.modelDir
		if dir == "" {
			dir = "models"
		}
		p = corrector.PathsFromDir(dir)
	}
	if o.ortLib != "" {
		p.ORTLib = o.ortLib
	}
	return p
}
