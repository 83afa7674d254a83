package memory

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens for a piece of memory content.
type Estimator interface {
	Estimate(content string) int
}

// tiktokenEstimator wraps github.com/pkoukk/tiktoken-go's cl100k_base
// encoding, giving estimated_tokens real fidelity instead of a
// characters-divided-by-four heuristic.
type tiktokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTokenEstimator returns the default token estimator. Encoding data is
// loaded lazily on first use and cached for the life of the process.
func NewTokenEstimator() Estimator {
	return &tiktokenEstimator{}
}

func (t *tiktokenEstimator) Estimate(content string) int {
	t.once.Do(func() {
		t.enc, t.err = tiktoken.GetEncoding("cl100k_base")
	})
	if t.err != nil || t.enc == nil {
		// tiktoken-go's default encodings are fetched from a remote asset
		// cache; when that's unavailable (air-gapped CI, no network) fall
		// back to a coarse heuristic rather than blocking compaction.
		return heuristicTokens(content)
	}
	return len(t.enc.Encode(content, nil, nil))
}

func heuristicTokens(content string) int {
	if len(content) == 0 {
		return 0
	}
	n := len(content) / 4
	if n == 0 {
		n = 1
	}
	return n
}
