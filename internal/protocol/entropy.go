package protocol

import (
	"math"
	"sort"
)

// Candidate is one entry of a probe's ranked distribution.
type Candidate struct {
	Token   string
	Prob    float64
	Logprob float64
}

// EntropyBits computes Shannon entropy in bits over a candidate set given as
// token -> ln(p). The set is the backend's top-k truncation of the full
// distribution, so this is a bounded approximation by construction.
func EntropyBits(logprobs map[string]float64) float64 {
	var nats float64
	for _, lp := range logprobs {
		p := math.Exp(lp)
		if p > 0 {
			nats -= p * lp
		}
	}
	return nats / math.Ln2
}

// Rank converts a candidate map to a slice sorted by descending probability.
// Ties break on token text so the order is deterministic.
func Rank(logprobs map[string]float64) []Candidate {
	ranked := make([]Candidate, 0, len(logprobs))
	for tok, lp := range logprobs {
		ranked = append(ranked, Candidate{Token: tok, Prob: math.Exp(lp), Logprob: lp})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Prob != ranked[j].Prob {
			return ranked[i].Prob > ranked[j].Prob
		}
		return ranked[i].Token < ranked[j].Token
	})
	return ranked
}
