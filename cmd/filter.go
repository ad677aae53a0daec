package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var filterBank string

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Flatten raw search results through the URL filter",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initRunner(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		banks, err := selectBanks(env.Artifacts, filterBank)
		if err != nil {
			return err
		}

		failed := 0
		for _, bank := range banks {
			if err := env.Runner.FilterBank(ctx, bank); err != nil {
				if ctx.Err() != nil {
					return err
				}
				zap.L().Error("filter: bank failed",
					zap.String("bank", bank.Name),
					zap.Error(err),
				)
				failed++
			}
		}

		zap.L().Info("filter complete",
			zap.Int("banks", len(banks)),
			zap.Int("failed", failed),
		)
		return nil
	},
}

func init() {
	filterCmd.Flags().StringVar(&filterBank, "bank", "", "limit to one bank by name")
	rootCmd.AddCommand(filterCmd)
}
