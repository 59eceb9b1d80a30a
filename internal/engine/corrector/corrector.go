package corrector

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/crimson-sun/quill/internal/model"
)

// Corrector turns a sentence into its corrected form. Implementations are
// shared across requests and must not change state between calls.
type Corrector interface {
	Correct(ctx context.Context, text string) (string, error)
	Name() string
	Close() error
}

// Paths locates the files of an exported seq2seq model.
type Paths struct {
	Encoder   string
	Decoder   string
	Tokenizer string
	Config    string
	ORTLib    string // empty: let onnxruntime_go use its platform default
}

// PathsFromDir returns the default file layout of an optimum ONNX export:
// encoder_model.onnx, decoder_model.onnx, tokenizer.json and config.json,
// with libonnxruntime.so shipped alongside.
func PathsFromDir(dir string) Paths {
	return Paths{
		Encoder:   filepath.Join(dir, "encoder_model.onnx"),
		Decoder:   filepath.Join(dir, "decoder_model.onnx"),
		Tokenizer: filepath.Join(dir, "tokenizer.json"),
		Config:    filepath.Join(dir, "config.json"),
		ORTLib:    filepath.Join(dir, "libonnxruntime.so"),
	}
}

// ONNXCorrector runs a local encoder/decoder model with beam search.
// The full pipeline is: tokenize → encode → beam search over the decoder →
// decode without special tokens.
type ONNXCorrector struct {
	session *seq2seqSession
	tok     *textTokenizer
	special *specialTokens
	params  model.GenerationParams
}

// NewONNX loads the tokenizer, special tokens and both ONNX sessions.
func NewONNX(paths Paths, params model.GenerationParams, threads int) (*ONNXCorrector, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("corrector: %w", err)
	}

	special, err := loadSpecialTokens(paths.Config)
	if err != nil {
		return nil, fmt.Errorf("corrector: %w", err)
	}

	tok, err := newTextTokenizer(paths.Tokenizer, params.MaxInputLength, special.eosID)
	if err != nil {
		return nil, fmt.Errorf("corrector: %w", err)
	}

	sess, err := newSeq2SeqSession(paths.Encoder, paths.Decoder, paths.ORTLib, threads)
	if err != nil {
		return nil, fmt.Errorf("corrector: %w", err)
	}

	return &ONNXCorrector{session: sess, tok: tok, special: special, params: params}, nil
}

// Name identifies the backend in logs and health output.
func (c *ONNXCorrector) Name() string { return "onnx" }

// Correct generates the corrected form of text.
func (c *ONNXCorrector) Correct(ctx context.Context, text string) (string, error) {
	ids, mask, err := c.tok.encode(text)
	if err != nil {
		return "", &model.EngineError{Engine: c.Name(), Err: err}
	}

	hidden, err := c.session.encode(ids, mask)
	if err != nil {
		return "", &model.EngineError{Engine: c.Name(), Err: err}
	}

	state, err := c.session.newDecoderState(hidden, mask, c.params.NumBeams)
	if err != nil {
		return "", &model.EngineError{Engine: c.Name(), Err: err}
	}
	defer state.release()

	out, err := beamSearch(ctx, beamConfig{
		params:  c.params,
		startID: c.special.decoderStartID,
		eosID:   c.special.eosID,
	}, state.step)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", &model.EngineError{Engine: c.Name(), Err: err}
	}

	return c.tok.decode(out), nil
}

// Close releases ONNX Runtime resources.
func (c *ONNXCorrector) Close() error {
	if c.session != nil {
		return c.session.close()
	}
	return nil
}

// serialized allows one Correct call at a time on the wrapped corrector.
// Waiting callers give up when their context ends.
type serialized struct {
	turn  *semaphore.Weighted
	inner Corrector
}

// Serialized wraps c so concurrent callers take turns.
func Serialized(c Corrector) Corrector {
	return &serialized{turn: semaphore.NewWeighted(1), inner: c}
}

func (s *serialized) Correct(ctx context.Context, text string) (string, error) {
	if err := s.turn.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.turn.Release(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.inner.Correct(ctx, text)
}

func (s *serialized) Name() string { return s.inner.Name() }

// Close waits for the running call, if any, then closes the inner corrector.
func (s *serialized) Close() error {
	if err := s.turn.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer s.turn.Release(1)
	return s.inner.Close()
}
