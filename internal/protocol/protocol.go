// Package protocol implements the forced-token intervention protocol: probe
// the model's next-token distribution, force one of two alternative tokens,
// probe again, and report how the entropy moved.
package protocol

import (
	"context"
	"fmt"

	"github.com/grxam/Joules-per-Bit/internal/backend"
	"github.com/grxam/Joules-per-Bit/internal/opt"
)

type Mode string

const (
	ModeA2B  Mode = "A2B"
	ModeB2A  Mode = "B2A"
	ModeBoth Mode = "BOTH"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeA2B, ModeB2A, ModeBoth:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q (want A2B, B2A or BOTH)", s)
}

func (m Mode) RunsA2B() bool { return m == ModeA2B || m == ModeBoth }
func (m Mode) RunsB2A() bool { return m == ModeB2A || m == ModeBoth }

// forceBias is the logit adjustment applied to the target token. Large
// enough that the target wins against any competing logit.
const forceBias = 100

// ProbeResult is one unbiased single-token probe.
type ProbeResult struct {
	EntropyBits float64
	Sampled     string
	Ranked      []Candidate
}

// DirectionResult is one full pass of the state machine for one direction.
type DirectionResult struct {
	Before      ProbeResult
	After       ProbeResult
	ForcedToken string
	Delta       float64
}

type RunResult struct {
	RunID       string
	Mode        Mode
	A2B         *DirectionResult
	B2A         *DirectionResult
	OrderEffect opt.Float
}

type Runner struct {
	Backend   backend.Backend
	SystemMsg string
	TokenA    string
	TokenB    string
	NProbs    int
}

// Prompt builds the fixed starting prompt every direction probes from.
func (r *Runner) Prompt() string {
	return fmt.Sprintf("System: %s\nUser: Continue.\nAssistant:", r.SystemMsg)
}

// Run executes the protocol for the directions the mode selects. Both
// directions start from the identical unperturbed prompt; they are never
// chained into one conversation. Any backend failure aborts the whole run.
func (r *Runner) Run(ctx context.Context, runID string, mode Mode) (*RunResult, error) {
	res := &RunResult{RunID: runID, Mode: mode}

	if mode.RunsA2B() {
		dir, err := r.runDirection(ctx, r.TokenA)
		if err != nil {
			return nil, fmt.Errorf("direction A2B: %w", err)
		}
		res.A2B = dir
	}
	if mode.RunsB2A() {
		dir, err := r.runDirection(ctx, r.TokenB)
		if err != nil {
			return nil, fmt.Errorf("direction B2A: %w", err)
		}
		res.B2A = dir
	}
	if res.A2B != nil && res.B2A != nil {
		res.OrderEffect = opt.Some(res.A2B.Delta - res.B2A.Delta)
	}
	return res, nil
}

// runDirection walks INIT, PROBE_BEFORE, FORCE, PROBE_AFTER, DONE for one
// forced token.
func (r *Runner) runDirection(ctx context.Context, target string) (*DirectionResult, error) {
	tokenID, err := r.Backend.Tokenize(ctx, target)
	if err != nil {
		return nil, err
	}

	prompt := r.Prompt()

	before, err := r.probe(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("probe before: %w", err)
	}

	forced, err := r.force(ctx, prompt, tokenID)
	if err != nil {
		return nil, fmt.Errorf("forcing token %q: %w", target, err)
	}

	after, err := r.probe(ctx, prompt+forced)
	if err != nil {
		return nil, fmt.Errorf("probe after: %w", err)
	}

	return &DirectionResult{
		Before:      *before,
		After:       *after,
		ForcedToken: forced,
		Delta:       after.EntropyBits - before.EntropyBits,
	}, nil
}

func (r *Runner) probe(ctx context.Context, prompt string) (*ProbeResult, error) {
	comp, err := r.Backend.Complete(ctx, &backend.CompletionRequest{
		Prompt: prompt,
		NProbs: r.NProbs,
	})
	if err != nil {
		return nil, err
	}
	return &ProbeResult{
		EntropyBits: EntropyBits(comp.Candidates),
		Sampled:     comp.Text,
		Ranked:      Rank(comp.Candidates),
	}, nil
}

func (r *Runner) force(ctx context.Context, prompt string, tokenID int) (string, error) {
	comp, err := r.Backend.Complete(ctx, &backend.CompletionRequest{
		Prompt:    prompt,
		NProbs:    1,
		LogitBias: map[int]float64{tokenID: forceBias},
	})
	if err != nil {
		return "", err
	}
	return comp.Text, nil
}
