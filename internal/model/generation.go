package model

import "fmt"

// GenerationParams fixes how the correction engine decodes its output.
// Beam search without sampling, so a given input always yields the same text.
type GenerationParams struct {
	NumBeams        int
	MaxInputLength  int // tokens kept after truncation
	MaxOutputLength int // tokens generated, including the decoder start token
	EarlyStopping   bool
	LengthPenalty   float64
}

// DefaultGenerationParams mirrors the decoding setup the service was built around.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		NumBeams:        4,
		MaxInputLength:  512,
		MaxOutputLength: 512,
		EarlyStopping:   true,
		LengthPenalty:   1.0,
	}
}

// Validate rejects parameter sets the decoder cannot run with.
func (p GenerationParams) Validate() error {
	if p.NumBeams < 1 {
		return fmt.Errorf("generation: num_beams must be >= 1, got %d", p.NumBeams)
	}
	if p.MaxInputLength < 2 {
		return fmt.Errorf("generation: max_input_length must be >= 2, got %d", p.MaxInputLength)
	}
	if p.MaxOutputLength < 2 {
		return fmt.Errorf("generation: max_output_length must be >= 2, got %d", p.MaxOutputLength)
	}
	return nil
}
