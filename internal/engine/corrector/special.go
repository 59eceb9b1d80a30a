package corrector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// specialTokens holds the ids the decoder needs to start and stop.
type specialTokens struct {
	padID          int64
	eosID          int64
	decoderStartID int64
}

// loadSpecialTokens reads the special token ids from a model config.json.
// A missing decoder_start_token_id falls back to the pad id, which is how
// T5-family models start decoding.
func loadSpecialTokens(path string) (*specialTokens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("special tokens: %w", err)
	}

	var raw struct {
		PadTokenID          *int64 `json:"pad_token_id"`
		EOSTokenID          *int64 `json:"eos_token_id"`
		DecoderStartTokenID *int64 `json:"decoder_start_token_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("special tokens: failed to parse %s: %w", path, err)
	}

	if raw.EOSTokenID == nil {
		return nil, errors.New("special tokens: missing eos_token_id")
	}
	if raw.PadTokenID == nil && raw.DecoderStartTokenID == nil {
		return nil, errors.New("special tokens: missing both pad_token_id and decoder_start_token_id")
	}

	st := &specialTokens{eosID: *raw.EOSTokenID}
	if raw.PadTokenID != nil {
		st.padID = *raw.PadTokenID
	}
	if raw.DecoderStartTokenID != nil {
		st.decoderStartID = *raw.DecoderStartTokenID
	} else {
		st.decoderStartID = st.padID
	}
	return st, nil
}
