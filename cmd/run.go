package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runBank        string
	runForce       bool
	runConcurrency int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run search, filter, and classify for every bank",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireAnthropicKey(); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initRunner(ctx, runForce)
		if err != nil {
			return err
		}
		defer env.Close()

		banks, err := selectBanks(env.Artifacts, runBank)
		if err != nil {
			return err
		}

		concurrency := runConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Run.Concurrency
		}

		failed := env.Runner.RunBanks(ctx, banks, concurrency)

		env.Runner.Classifier.LogCost()
		zap.L().Info("pipeline complete",
			zap.Int("banks", len(banks)),
			zap.Int("failed", failed),
		)
		if failed > 0 {
			return eris.Errorf("run: %d of %d banks failed", failed, len(banks))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runBank, "bank", "", "limit to one bank by name")
	runCmd.Flags().BoolVar(&runForce, "force", false, "rerun stages even when artifacts exist")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "banks processed in parallel (default from config)")
	rootCmd.AddCommand(runCmd)
}
