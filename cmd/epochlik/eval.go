package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/epochlik"
	"github.com/aretw0/epochlik/internal/presentation/tui"
	"github.com/aretw0/epochlik/pkg/adapters/file"
	"github.com/aretw0/epochlik/pkg/adapters/redis"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval <scenario.yaml>",
	Short: "Evaluate the log-likelihood of a scenario",
	Long: `Builds the tree, alignment and epoch model described by a scenario file and
prints its log-likelihood.

With --checkpoint-redis the run resumes from the checkpoint stored under --run-id,
if any, and stores a new checkpoint after evaluating. The run id is locked while
the command runs. --checkpoint-dir does the same with checkpoint files in a
directory, without locking.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	addEngineFlags(evalCmd)
	evalCmd.Flags().String("checkpoint-redis", "", "Redis address used to resume and store checkpoints")
	evalCmd.Flags().String("checkpoint-dir", "", "Directory used to resume and store checkpoints")
	evalCmd.Flags().String("run-id", "default", "Checkpoint and lock identifier of this run")
	evalCmd.Flags().Bool("plain", false, "Disable rich terminal output")
	evalCmd.Flags().Bool("patterns", false, "List the lowest-scoring patterns")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	opts, err := engineOptions(cmd, logger)
	if err != nil {
		return err
	}
	runID, _ := cmd.Flags().GetString("run-id")

	metrics, stop, err := serveMetrics(cmd, logger)
	if err != nil {
		return err
	}
	defer stop()
	if metrics != nil {
		opts = append(opts, epochlik.WithEvaluationHooks(metrics.Hooks(runID)))
	}

	sc, err := epochlik.LoadScenario(args[0])
	if err != nil {
		return err
	}
	lik, err := epochlik.NewFromScenario(sc, opts...)
	if err != nil {
		return err
	}
	defer lik.Close()

	var store ports.CheckpointStore
	resumed := ""
	if addr, _ := cmd.Flags().GetString("checkpoint-redis"); addr != "" {
		rs := redis.New(addr, "", 0)
		defer rs.Close()

		locker := redis.NewLocker(rs.Client(), redis.DefaultPrefix)
		unlock, err := locker.Lock(ctx, runID, time.Minute)
		if err != nil {
			return fmt.Errorf("failed to lock run %q: %w", runID, err)
		}
		defer func() { _ = unlock(ctx) }()
		store = rs
	} else if dir, _ := cmd.Flags().GetString("checkpoint-dir"); dir != "" {
		store = file.New(dir)
	}

	if store != nil {
		cp, err := store.Load(ctx, runID)
		switch {
		case err == nil:
			if err := lik.Resume(cp); err != nil {
				return err
			}
			resumed = runID
		case !errors.Is(err, domain.ErrCheckpointNotFound):
			return err
		}
	}

	start := time.Now()
	logL, err := lik.LogLikelihood()
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if store != nil {
		if err := store.Save(ctx, lik.Snapshot(runID)); err != nil {
			return err
		}
		logger.Info("checkpoint saved", "run", runID)
	}

	caps := lik.Capabilities()
	report := tui.Report{
		Name:          lik.Name,
		Engine:        caps.Name,
		Threads:       caps.Threads,
		Scheme:        string(lik.Scheme()),
		Tips:          sc.Tree.TipCount(),
		Patterns:      sc.Patterns.PatternCount(),
		Sites:         sc.Patterns.SiteCount(),
		Boundaries:    sc.Boundaries,
		LogLikelihood: logL,
		Resumed:       resumed,
		Duration:      elapsed,
	}
	if show, _ := cmd.Flags().GetBool("patterns"); show {
		if report.PatternLogLikelihoods, err = lik.PatternLogLikelihoods(); err != nil {
			return err
		}
	}
	plain, _ := cmd.Flags().GetBool("plain")
	return report.Write(cmd.OutOrStdout(), plain)
}
