package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbdata-group/listing-cli/internal/roster"
)

var banksCmd = &cobra.Command{
	Use:   "banks",
	Short: "Manage the central-bank roster",
}

var banksImportFile string

var banksImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the bank roster from CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		banks, err := roster.Load(banksImportFile)
		if err != nil {
			return eris.Wrap(err, "load roster")
		}

		artifacts, err := initArtifacts()
		if err != nil {
			return err
		}
		if err := artifacts.WriteRoster(banks); err != nil {
			return err
		}

		zap.L().Info("roster imported",
			zap.Int("banks", len(banks)),
			zap.String("file", banksImportFile),
		)
		return nil
	},
}

func init() {
	banksImportCmd.Flags().StringVar(&banksImportFile, "file", "", "path to roster CSV or XLSX (required)")
	_ = banksImportCmd.MarkFlagRequired("file")
	banksCmd.AddCommand(banksImportCmd)
	rootCmd.AddCommand(banksCmd)
}
