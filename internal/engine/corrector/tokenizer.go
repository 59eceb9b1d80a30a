package corrector

import (
	"fmt"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// textTokenizer converts between text and model token ids using a
// HuggingFace tokenizer.json.
type textTokenizer struct {
	tk     *tokenizer.Tokenizer
	maxLen int
	eosID  int64
}

func newTextTokenizer(path string, maxLen int, eosID int64) (*textTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: failed to load %s: %w", path, err)
	}
	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxLen,
		Strategy:  tokenizer.LongestFirst,
		Stride:    0,
	})
	return &textTokenizer{tk: tk, maxLen: maxLen, eosID: eosID}, nil
}

// encode returns input ids and attention mask for a single sequence,
// truncated to maxLen and terminated by eos.
func (t *textTokenizer) encode(text string) (inputIDs, attentionMask []int64, err error) {
	enc, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, fmt.Errorf("tokenizer: encode: %w", err)
	}
	ids := make([]int64, len(enc.Ids))
	for i, id := range enc.Ids {
		ids[i] = int64(id)
	}
	ids = terminate(ids, t.maxLen, t.eosID)

	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return ids, mask, nil
}

// terminate caps ids at maxLen and makes sure the last token is eos.
func terminate(ids []int64, maxLen int, eosID int64) []int64 {
	if n := len(ids); n > 0 && ids[n-1] == eosID && n <= maxLen {
		return ids
	}
	if len(ids) >= maxLen {
		ids = ids[:maxLen-1]
	}
	return append(ids, eosID)
}

// decode converts generated ids back to text with special tokens removed.
func (t *textTokenizer) decode(ids []int64) string {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return strings.TrimSpace(t.tk.Decode(out, true))
}
