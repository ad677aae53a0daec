package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	searchBank  string
	searchForce bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run search queries for each bank and write raw result artifacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initRunner(ctx, searchForce)
		if err != nil {
			return err
		}
		defer env.Close()

		banks, err := selectBanks(env.Artifacts, searchBank)
		if err != nil {
			return err
		}

		failed := 0
		for _, bank := range banks {
			if err := env.Runner.SearchBank(ctx, bank); err != nil {
				if ctx.Err() != nil {
					return err
				}
				zap.L().Error("search: bank failed",
					zap.String("bank", bank.Name),
					zap.Error(err),
				)
				failed++
			}
		}

		zap.L().Info("search complete",
			zap.Int("banks", len(banks)),
			zap.Int("failed", failed),
		)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchBank, "bank", "", "limit to one bank by name")
	searchCmd.Flags().BoolVar(&searchForce, "force", false, "reprocess banks with existing artifacts")
	rootCmd.AddCommand(searchCmd)
}
