package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	classifyBank  string
	classifyForce bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Score filtered candidates with the listing-page classifier",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireAnthropicKey(); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initRunner(ctx, classifyForce)
		if err != nil {
			return err
		}
		defer env.Close()

		banks, err := selectBanks(env.Artifacts, classifyBank)
		if err != nil {
			return err
		}

		failed := 0
		for _, bank := range banks {
			if err := env.Runner.ClassifyBank(ctx, bank); err != nil {
				if ctx.Err() != nil {
					return err
				}
				zap.L().Error("classify: bank failed",
					zap.String("bank", bank.Name),
					zap.Error(err),
				)
				failed++
			}
		}

		env.Runner.Classifier.LogCost()
		zap.L().Info("classify complete",
			zap.Int("banks", len(banks)),
			zap.Int("failed", failed),
		)
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyBank, "bank", "", "limit to one bank by name")
	classifyCmd.Flags().BoolVar(&classifyForce, "force", false, "reclassify even when an artifact exists")
	rootCmd.AddCommand(classifyCmd)
}
