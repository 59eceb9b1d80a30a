package corrector

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Tensor names of a T5-style encoder/decoder pair exported without past
// key values.
var (
	encoderInputs = []string{"input_ids", "attention_mask"}
	encoderOutput = "last_hidden_state"
	decoderInputs = []string{"input_ids", "encoder_attention_mask", "encoder_hidden_states"}
	decoderOutput = "logits"
)

// seq2seqSession holds the encoder and decoder sessions of one model.
// Sessions are read-only after construction; every call allocates its own
// tensors.
type seq2seqSession struct {
	encoder   *ort.DynamicAdvancedSession
	decoder   *ort.DynamicAdvancedSession
	hiddenDim int64
	vocabSize int64
}

// newSeq2SeqSession loads both ONNX graphs and validates their tensor names
// and shapes.
func newSeq2SeqSession(encoderPath, decoderPath, libPath string, threads int) (*seq2seqSession, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	hiddenDim, err := inspect(encoderPath, encoderInputs, encoderOutput)
	if err != nil {
		return nil, fmt.Errorf("onnx: encoder: %w", err)
	}
	vocabSize, err := inspect(decoderPath, decoderInputs, decoderOutput)
	if err != nil {
		return nil, fmt.Errorf("onnx: decoder: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if threads > 0 {
		opts.SetIntraOpNumThreads(threads)
	}
	opts.SetInterOpNumThreads(1)

	enc, err := ort.NewDynamicAdvancedSession(encoderPath, encoderInputs, []string{encoderOutput}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create encoder session: %w", err)
	}
	dec, err := ort.NewDynamicAdvancedSession(decoderPath, decoderInputs, []string{decoderOutput}, opts)
	if err != nil {
		enc.Destroy()
		return nil, fmt.Errorf("onnx: failed to create decoder session: %w", err)
	}

	return &seq2seqSession{
		encoder:   enc,
		decoder:   dec,
		hiddenDim: hiddenDim,
		vocabSize: vocabSize,
	}, nil
}

// inspect checks that the model exposes the required inputs and a 3D output
// with a static last dimension, which it returns.
func inspect(path string, required []string, output string) (int64, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read model info: %w", err)
	}

	names := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		names[in.Name] = true
	}
	for _, name := range required {
		if !names[name] {
			return 0, fmt.Errorf("model missing required input %q", name)
		}
	}

	for _, out := range outputs {
		if out.Name != output {
			continue
		}
		dims := out.Dimensions
		if len(dims) != 3 {
			return 0, fmt.Errorf("expected 3D %s tensor, got %v", output, dims)
		}
		if dims[2] <= 0 {
			return 0, fmt.Errorf("%s has dynamic last dimension %d", output, dims[2])
		}
		return dims[2], nil
	}
	return 0, fmt.Errorf("model missing required output %q", output)
}

// encode runs the encoder over one sequence and returns its hidden states as
// a flat [seqLen * hiddenDim] slice.
func (s *seq2seqSession) encode(inputIDs, attentionMask []int64) ([]float32, error) {
	seqLen := int64(len(inputIDs))
	shape := ort.NewShape(1, seqLen)

	tIDs, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, s.hiddenDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.encoder.Run([]ort.Value{tIDs, tMask}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: encoder inference failed: %w", err)
	}

	src := tOut.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

// decoderState carries the encoder outputs replicated across the beam batch.
// Built once per request and released with release.
type decoderState struct {
	sess      *seq2seqSession
	batch     int64
	encMask   *ort.Tensor[int64]
	encHidden *ort.Tensor[float32]
}

func (s *seq2seqSession) newDecoderState(hidden []float32, attentionMask []int64, batch int) (*decoderState, error) {
	seqLen := int64(len(attentionMask))
	b := int64(batch)

	mask := make([]int64, 0, b*seqLen)
	states := make([]float32, 0, b*seqLen*s.hiddenDim)
	for i := int64(0); i < b; i++ {
		mask = append(mask, attentionMask...)
		states = append(states, hidden...)
	}

	tMask, err := ort.NewTensor(ort.NewShape(b, seqLen), mask)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create encoder_attention_mask tensor: %w", err)
	}
	tHidden, err := ort.NewTensor(ort.NewShape(b, seqLen, s.hiddenDim), states)
	if err != nil {
		tMask.Destroy()
		return nil, fmt.Errorf("onnx: failed to create encoder_hidden_states tensor: %w", err)
	}
	return &decoderState{sess: s, batch: b, encMask: tMask, encHidden: tHidden}, nil
}

// step runs the decoder over batch prefixes of equal length and returns the
// logits of the last position for each row.
func (d *decoderState) step(prefixes [][]int64) ([][]float32, error) {
	if int64(len(prefixes)) != d.batch {
		return nil, fmt.Errorf("onnx: expected %d prefixes, got %d", d.batch, len(prefixes))
	}
	curLen := int64(len(prefixes[0]))
	ids := make([]int64, 0, d.batch*curLen)
	for _, p := range prefixes {
		ids = append(ids, p...)
	}

	tIDs, err := ort.NewTensor(ort.NewShape(d.batch, curLen), ids)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create decoder input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	vocab := d.sess.vocabSize
	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(d.batch, curLen, vocab))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create logits tensor: %w", err)
	}
	defer tOut.Destroy()

	err = d.sess.decoder.Run(
		[]ort.Value{tIDs, d.encMask, d.encHidden},
		[]ort.Value{tOut},
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: decoder inference failed: %w", err)
	}

	data := tOut.GetData()
	rows := make([][]float32, d.batch)
	for b := int64(0); b < d.batch; b++ {
		off := (b*curLen + curLen - 1) * vocab
		row := make([]float32, vocab)
		copy(row, data[off:off+vocab])
		rows[b] = row
	}
	return rows, nil
}

func (d *decoderState) release() {
	d.encMask.Destroy()
	d.encHidden.Destroy()
}

// close releases both ONNX sessions.
func (s *seq2seqSession) close() error {
	errEnc := s.encoder.Destroy()
	errDec := s.decoder.Destroy()
	if errEnc != nil {
		return errEnc
	}
	return errDec
}
