package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbdata-group/listing-cli/internal/artifact"
	"github.com/cbdata-group/listing-cli/internal/model"
	"github.com/cbdata-group/listing-cli/internal/store"
)

var (
	statusBank  string
	statusStage string
	statusState string
	statusLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent pipeline stage runs from the ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ledger, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.ListRuns(ctx, store.RunFilter{
			BankName: statusBank,
			Stage:    model.Stage(statusStage),
			Status:   model.StageStatus(statusState),
			Limit:    statusLimit,
		})
		if err != nil {
			return err
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func formatRunsList(w io.Writer, runs []model.BankRun) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BANK\tSTAGE\tSTATUS\tDETAIL\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.BankName,
			r.Stage,
			r.Status,
			r.Detail,
			r.StartedAt.Format("2006-01-02 15:04:05"),
		)
	}
	tw.Flush()
}

var sparseMaxHits int

var sparseCmd = &cobra.Command{
	Use:   "sparse",
	Short: "List banks whose searches returned few hits overall",
	RunE: func(cmd *cobra.Command, _ []string) error {
		artifacts, err := initArtifacts()
		if err != nil {
			return err
		}

		banks, err := selectBanks(artifacts, "")
		if err != nil {
			return err
		}

		flagged := formatSparseReport(os.Stdout, artifacts, banks, sparseMaxHits)

		zap.L().Info("sparse report complete",
			zap.Int("banks", len(banks)),
			zap.Int("flagged", flagged),
			zap.Int("max_hits", sparseMaxHits),
		)
		return nil
	},
}

// formatSparseReport lists banks whose raw artifact carries maxHits hits
// or fewer. Banks without a raw artifact are skipped; an unreadable
// artifact is warned about rather than silently treated as absent.
func formatSparseReport(w io.Writer, artifacts *artifact.Store, banks []model.Bank, maxHits int) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BANK\tHITS")
	flagged := 0
	for _, bank := range banks {
		raw, err := artifacts.ReadRaw(bank)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				zap.L().Warn("sparse: raw artifact unreadable",
					zap.String("bank", bank.Name),
					zap.Error(err),
				)
			}
			continue
		}
		if hits := raw.TotalHits(); hits <= maxHits {
			fmt.Fprintf(tw, "%s\t%d\n", bank.Name, hits)
			flagged++
		}
	}
	tw.Flush()
	return flagged
}

func init() {
	statusCmd.Flags().StringVar(&statusBank, "bank", "", "filter by bank name")
	statusCmd.Flags().StringVar(&statusStage, "stage", "", "filter by stage (search, filter, classify)")
	statusCmd.Flags().StringVar(&statusState, "status", "", "filter by status (running, complete, failed, skipped)")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 50, "maximum rows to show")
	rootCmd.AddCommand(statusCmd)

	sparseCmd.Flags().IntVar(&sparseMaxHits, "max-hits", 5, "flag banks with this many hits or fewer")
	rootCmd.AddCommand(sparseCmd)
}
