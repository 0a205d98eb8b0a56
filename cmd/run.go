package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/grxam/Joules-per-Bit/internal/backend"
	"github.com/grxam/Joules-per-Bit/internal/config"
	"github.com/grxam/Joules-per-Bit/internal/protocol"
	"github.com/grxam/Joules-per-Bit/internal/summary"
	"github.com/spf13/cobra"
)

var (
	flagRunID     string
	flagMode      string
	flagModelPath string
	flagOutDir    string
	flagSystemMsg string
	flagTokenA    string
	flagTokenB    string
	flagTopN      int
	flagLogprobs  int
	flagCtx       int
	flagThreads   int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one forced-token intervention run",
		RunE:  runProtocol,
	}
	cmd.Flags().StringVar(&flagRunID, "run-id", "", "unique run identifier (generated when empty)")
	cmd.Flags().StringVar(&flagMode, "mode", "BOTH", "protocol direction(s): A2B, B2A or BOTH")
	cmd.Flags().StringVar(&flagModelPath, "model-path", os.Getenv("LLAMA_MODEL_PATH"), "path to a local GGUF model file")
	cmd.Flags().StringVar(&flagOutDir, "out-dir", os.Getenv("LLAMA_OUT_DIR"), "directory for summary files")
	cmd.Flags().StringVar(&flagSystemMsg, "system-msg", "", "system message override")
	cmd.Flags().StringVar(&flagTokenA, "token-a", "", "token A text override")
	cmd.Flags().StringVar(&flagTokenB, "token-b", "", "token B text override")
	cmd.Flags().IntVar(&flagTopN, "topn", 0, "how many top tokens to print per probe")
	cmd.Flags().IntVar(&flagLogprobs, "logprobs", 0, "how many candidates to request per probe")
	cmd.Flags().IntVar(&flagCtx, "ctx", 0, "context length override")
	cmd.Flags().IntVar(&flagThreads, "threads", 0, "CPU thread count override")
	return cmd
}

func runProtocol(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)

	if cfg.Model.Path == "" {
		return fmt.Errorf("model path is required: use --model-path, the config file, or LLAMA_MODEL_PATH")
	}
	mode, err := protocol.ParseMode(flagMode)
	if err != nil {
		return err
	}
	runID := flagRunID
	if runID == "" {
		runID = uuid.NewString()
	}

	ctx := context.Background()

	inst, err := startBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting backend: %w", err)
	}
	defer inst.Stop()

	runner := &protocol.Runner{
		Backend:   backend.NewClient(inst.URL()),
		SystemMsg: cfg.Protocol.SystemMsg,
		TokenA:    cfg.Protocol.TokenA,
		TokenB:    cfg.Protocol.TokenB,
		NProbs:    cfg.Protocol.Logprobs,
	}

	fmt.Printf("Running %s (mode %s)...\n", runID, mode)
	res, err := runner.Run(ctx, runID, mode)
	if err != nil {
		return err
	}

	printDirection("A2B", res.A2B, cfg.Protocol.TopN)
	printDirection("B2A", res.B2A, cfg.Protocol.TopN)
	if oe, ok := res.OrderEffect.Get(); ok {
		fmt.Printf("order_effect_bits: %+.4f\n", oe)
	}

	path, err := summary.Write(cfg.Dirs.Summaries, summary.FromRun(res))
	if err != nil {
		return err
	}
	fmt.Printf("Wrote summary to %s\n", path)
	return nil
}

func startBackend(ctx context.Context, cfg *config.Config) (backend.Instance, error) {
	if cfg.Model.Launch == "docker" {
		return backend.StartContainer(ctx, &backend.ContainerOpts{
			Image:     cfg.Model.Image,
			ModelPath: cfg.Model.Path,
			Ctx:       cfg.Model.Ctx,
			Threads:   cfg.Model.Threads,
		})
	}
	return backend.Start(ctx, &backend.StartOpts{
		Binary:    cfg.Model.ServerBin,
		ModelPath: cfg.Model.Path,
		Ctx:       cfg.Model.Ctx,
		Threads:   cfg.Model.Threads,
		LogDir:    cfg.Model.LogDir,
	})
}

// applyRunFlags lets flags override the config file, leaving config values
// in place for anything not set.
func applyRunFlags(cfg *config.Config) {
	if flagModelPath != "" {
		cfg.Model.Path = flagModelPath
	}
	if flagOutDir != "" {
		cfg.Dirs.Summaries = flagOutDir
	}
	if flagSystemMsg != "" {
		cfg.Protocol.SystemMsg = flagSystemMsg
	}
	if flagTokenA != "" {
		cfg.Protocol.TokenA = flagTokenA
	}
	if flagTokenB != "" {
		cfg.Protocol.TokenB = flagTokenB
	}
	if flagTopN > 0 {
		cfg.Protocol.TopN = flagTopN
	}
	if flagLogprobs > 0 {
		cfg.Protocol.Logprobs = flagLogprobs
	}
	if flagCtx > 0 {
		cfg.Model.Ctx = flagCtx
	}
	if flagThreads > 0 {
		cfg.Model.Threads = flagThreads
	}
}

func printDirection(name string, dir *protocol.DirectionResult, topn int) {
	if dir == nil {
		return
	}
	fmt.Printf("\n[%s] forced %q\n", name, dir.ForcedToken)
	fmt.Printf("  H_before: %.4f bits  H_after: %.4f bits  delta: %+.4f bits\n",
		dir.Before.EntropyBits, dir.After.EntropyBits, dir.Delta)
	fmt.Printf("  top tokens after forcing:\n")
	for i, c := range dir.After.Ranked {
		if i >= topn {
			break
		}
		fmt.Printf("    %-12q p=%.4f ln(p)=%.4f\n", c.Token, c.Prob, c.Logprob)
	}
}
