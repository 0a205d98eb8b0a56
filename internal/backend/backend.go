// Package backend talks to a llama.cpp server. The rest of the program only
// sees two operations: tokenizing a string to its first token id, and
// completing exactly one token with optional logit bias.
package backend

import "context"

type CompletionRequest struct {
	Prompt string
	// NProbs bounds the candidate set returned with the completion.
	NProbs int
	// LogitBias maps token ids to an additive logit adjustment.
	LogitBias map[int]float64
}

type Completion struct {
	// Text is the single emitted token, verbatim.
	Text string
	// Candidates maps each returned candidate token to ln(p).
	Candidates map[string]float64
}

type Backend interface {
	// Tokenize returns the id of the first token of text.
	Tokenize(ctx context.Context, text string) (int, error)
	// Complete samples exactly one token with deterministic decoding.
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}
