package main

import (
	"fmt"

	"github.com/aretw0/epochlik"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var chainsCmd = &cobra.Command{
	Use:   "chains <scenario.yaml>",
	Short: "Evaluate independent likelihood instances in parallel",
	Long: `Builds --n independent likelihoods from the same scenario, each with its own
tree and engine, and evaluates them concurrently. Instances share no state.`,
	Args: cobra.ExactArgs(1),
	RunE: runChains,
}

func init() {
	addEngineFlags(chainsCmd)
	chainsCmd.Flags().IntP("n", "n", 4, "Number of instances")
	chainsCmd.Flags().Int("parallel", 0, "Maximum instances evaluated at once, 0 for no limit")
	rootCmd.AddCommand(chainsCmd)
}

func runChains(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	opts, err := engineOptions(cmd, logger)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("n")
	if n < 1 {
		return fmt.Errorf("--n must be at least 1")
	}
	parallel, _ := cmd.Flags().GetInt("parallel")

	metrics, stop, err := serveMetrics(cmd, logger)
	if err != nil {
		return err
	}
	defer stop()

	results := make([]float64, n)
	g, ctx := errgroup.WithContext(cmd.Context())
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chain := fmt.Sprintf("chain-%d", i)
			sc, err := epochlik.LoadScenario(args[0])
			if err != nil {
				return err
			}
			chainOpts := append([]epochlik.Option{}, opts...)
			if metrics != nil {
				chainOpts = append(chainOpts, epochlik.WithEvaluationHooks(metrics.Hooks(chain)))
			}
			lik, err := epochlik.NewFromScenario(sc, chainOpts...)
			if err != nil {
				return fmt.Errorf("%s: %w", chain, err)
			}
			defer lik.Close()

			logL, err := lik.LogLikelihood()
			if err != nil {
				return fmt.Errorf("%s: %w", chain, err)
			}
			results[i] = logL
			logger.Debug("chain evaluated", "chain", chain, "logL", logL)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, logL := range results {
		fmt.Fprintf(out, "chain-%d\t%.6f\n", i, logL)
	}
	return nil
}
