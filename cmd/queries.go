package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbdata-group/listing-cli/internal/pipeline"
	"github.com/cbdata-group/listing-cli/pkg/anthropic"
)

var (
	queriesBank string
	queriesLLM  bool
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Show the per-bank search queries",
	Long:  "Expands the per-language query templates for each roster bank and prints them as JSON. With --llm the classification oracle writes the queries instead.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		artifacts, err := initArtifacts()
		if err != nil {
			return err
		}
		banks, err := selectBanks(artifacts, queriesBank)
		if err != nil {
			return err
		}

		var generator *pipeline.QueryGenerator
		if queriesLLM {
			if err := requireAnthropicKey(); err != nil {
				return err
			}
			generator = pipeline.NewQueryGenerator(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic)
		}

		out := make(map[string][]pipeline.TopicQuery, len(banks))
		for _, bank := range banks {
			if generator == nil {
				out[bank.Name] = pipeline.BuildQueries(bank)
				continue
			}
			queries, err := generator.Generate(ctx, bank)
			if err != nil {
				zap.L().Warn("queries: generation failed",
					zap.String("bank", bank.Name),
					zap.Error(err),
				)
				continue
			}
			out[bank.Name] = queries
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	queriesCmd.Flags().StringVar(&queriesBank, "bank", "", "limit to one bank by name")
	queriesCmd.Flags().BoolVar(&queriesLLM, "llm", false, "generate queries with the classification oracle")
	rootCmd.AddCommand(queriesCmd)
}
