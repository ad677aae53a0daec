package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbdata-group/listing-cli/internal/pipeline"
)

var collectStdout bool

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Aggregate high-confidence listing URLs across all classified banks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		artifacts, err := initArtifacts()
		if err != nil {
			return err
		}

		accepted, err := cfg.Pipeline.Accepted()
		if err != nil {
			return err
		}

		results, err := artifacts.ListClassified()
		if err != nil {
			return eris.Wrap(err, "collect: list classified artifacts")
		}

		collector := pipeline.Collector{
			Threshold: cfg.Pipeline.Threshold,
			Accepted:  accepted,
		}
		entries := collector.Collect(results)

		if err := artifacts.WriteAggregate(entries); err != nil {
			return err
		}
		if collectStdout {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(entries); err != nil {
				return eris.Wrap(err, "collect: encode output")
			}
		}

		zap.L().Info("collect complete",
			zap.Int("banks_classified", len(results)),
			zap.Int("entries", len(entries)),
			zap.Float64("threshold", cfg.Pipeline.Threshold),
		)
		return nil
	},
}

func init() {
	collectCmd.Flags().BoolVar(&collectStdout, "stdout", false, "also print the aggregate to stdout")
	rootCmd.AddCommand(collectCmd)
}
