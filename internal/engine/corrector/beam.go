package corrector

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/crimson-sun/quill/internal/model"
)

// stepFunc returns next-token logits for each prefix. All prefixes share one
// length and the batch size never changes during a search.
type stepFunc func(prefixes [][]int64) ([][]float32, error)

// beamConfig holds the token ids and decoding parameters of one search.
type beamConfig struct {
	params  model.GenerationParams
	startID int64
	eosID   int64
}

// hypothesis is a finished sequence and its length-normalized score.
type hypothesis struct {
	tokens []int64
	score  float64
}

// hypotheses keeps the best NumBeams finished sequences.
type hypotheses struct {
	beams         int
	lengthPenalty float64
	earlyStopping bool
	items         []hypothesis
	worst         float64
}

func newHypotheses(p model.GenerationParams) *hypotheses {
	return &hypotheses{
		beams:         p.NumBeams,
		lengthPenalty: p.LengthPenalty,
		earlyStopping: p.EarlyStopping,
		worst:         math.Inf(1),
	}
}

func (h *hypotheses) normalize(sumLogProbs float64, length int) float64 {
	return sumLogProbs / math.Pow(float64(length), h.lengthPenalty)
}

// add records a finished sequence. When full, the worst entry is evicted if
// the new one beats it.
func (h *hypotheses) add(tokens []int64, sumLogProbs float64) {
	score := h.normalize(sumLogProbs, len(tokens))
	if len(h.items) >= h.beams && score <= h.worst {
		return
	}
	h.items = append(h.items, hypothesis{tokens: tokens, score: score})
	if len(h.items) > h.beams {
		worstIdx := 0
		for i, it := range h.items {
			if it.score < h.items[worstIdx].score {
				worstIdx = i
			}
		}
		h.items = append(h.items[:worstIdx], h.items[worstIdx+1:]...)
	}
	h.worst = math.Inf(1)
	for _, it := range h.items {
		if it.score < h.worst {
			h.worst = it.score
		}
	}
}

// done reports whether no running beam can still enter the finished set.
func (h *hypotheses) done(bestRunning float64, curLen int) bool {
	if len(h.items) < h.beams {
		return false
	}
	if h.earlyStopping {
		return true
	}
	return h.worst >= h.normalize(bestRunning, curLen)
}

// best returns the highest scoring hypothesis. Earlier entries win ties.
func (h *hypotheses) best() hypothesis {
	best := h.items[0]
	for _, it := range h.items[1:] {
		if it.score > best.score {
			best = it
		}
	}
	return best
}

type candidate struct {
	beam  int
	token int64
	score float64
}

// beamSearch decodes one sequence. It is deterministic: candidates with equal
// scores are ordered by beam index, then token id. The returned tokens start
// with the decoder start id and never contain eos.
func beamSearch(ctx context.Context, cfg beamConfig, step stepFunc) ([]int64, error) {
	n := cfg.params.NumBeams

	prefixes := make([][]int64, n)
	scores := make([]float64, n)
	for i := range prefixes {
		prefixes[i] = []int64{cfg.startID}
		if i > 0 {
			// Only the first beam is live until the first expansion, so the
			// initial candidates are not duplicated.
			scores[i] = math.Inf(-1)
		}
	}

	finished := newHypotheses(cfg.params)
	done := false

	for curLen := 1; curLen < cfg.params.MaxOutputLength; curLen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logits, err := step(prefixes)
		if err != nil {
			return nil, err
		}
		if len(logits) != n {
			return nil, fmt.Errorf("beam search: step returned %d rows for %d beams", len(logits), n)
		}

		cands := topCandidates(logits, scores, 2*n)

		nextPrefixes := make([][]int64, 0, n)
		nextScores := make([]float64, 0, n)
		for rank, c := range cands {
			if math.IsInf(c.score, -1) {
				break
			}
			if c.token == cfg.eosID {
				if rank < n {
					finished.add(prefixes[c.beam], c.score)
				}
				continue
			}
			p := make([]int64, curLen+1)
			copy(p, prefixes[c.beam])
			p[curLen] = c.token
			nextPrefixes = append(nextPrefixes, p)
			nextScores = append(nextScores, c.score)
			if len(nextPrefixes) == n {
				break
			}
		}

		if len(nextPrefixes) == 0 {
			done = true
			break
		}
		// Keep the batch size fixed by padding with dead beams.
		for len(nextPrefixes) < n {
			nextPrefixes = append(nextPrefixes, nextPrefixes[0])
			nextScores = append(nextScores, math.Inf(-1))
		}

		prefixes, scores = nextPrefixes, nextScores

		if finished.done(scores[0], curLen+1) {
			done = true
			break
		}
	}

	// Out of length: running beams become candidates too.
	if !done {
		for i := range prefixes {
			if !math.IsInf(scores[i], -1) {
				finished.add(prefixes[i], scores[i])
			}
		}
	}

	if len(finished.items) == 0 {
		return []int64{cfg.startID}, nil
	}
	return finished.best().tokens, nil
}

// topCandidates returns the k best (beam, token) expansions by cumulative
// log-probability.
func topCandidates(logits [][]float32, scores []float64, k int) []candidate {
	var out []candidate
	for b, row := range logits {
		if math.IsInf(scores[b], -1) {
			continue
		}
		logProbs := logSoftmax(row)
		for tok, lp := range logProbs {
			c := candidate{beam: b, token: int64(tok), score: scores[b] + lp}
			if len(out) == k && !better(c, out[k-1]) {
				continue
			}
			i := sort.Search(len(out), func(i int) bool { return better(c, out[i]) })
			if len(out) < k {
				out = append(out, candidate{})
			}
			copy(out[i+1:], out[i:len(out)-1])
			out[i] = c
		}
	}
	return out
}

func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.beam != b.beam {
		return a.beam < b.beam
	}
	return a.token < b.token
}

func logSoftmax(row []float32) []float64 {
	maxV := math.Inf(-1)
	for _, v := range row {
		if float64(v) > maxV {
			maxV = float64(v)
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v) - maxV)
	}
	logSum := maxV + math.Log(sum)
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = float64(v) - logSum
	}
	return out
}
