package pipeline

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/cbdata-group/listing-cli/internal/config"
	"github.com/cbdata-group/listing-cli/internal/model"
	"github.com/cbdata-group/listing-cli/pkg/anthropic"
)

//go:embed templates/queries.yaml
var queryTemplatesYAML []byte

// TopicQuery pairs a search query with the topic it targets.
type TopicQuery struct {
	Topic model.Topic `json:"topic" yaml:"topic"`
	Query string      `json:"query" yaml:"query"`
}

type templateTable map[string][]TopicQuery

var queryTemplates = mustLoadTemplates()

func mustLoadTemplates() templateTable {
	var tbl templateTable
	if err := yaml.Unmarshal(queryTemplatesYAML, &tbl); err != nil {
		panic(eris.Wrap(err, "pipeline: parse query templates"))
	}
	return tbl
}

// BuildQueries expands the template table for the bank's query language.
// Unknown languages fall back to english, matching how the roster treats
// a blank info column.
func BuildQueries(bank model.Bank) []TopicQuery {
	table, ok := queryTemplates[string(bank.Language)]
	if !ok {
		table = queryTemplates["english"]
	}

	out := make([]TopicQuery, len(table))
	for i, tq := range table {
		out[i] = TopicQuery{
			Topic: tq.Topic,
			Query: strings.ReplaceAll(tq.Query, "{url}", bank.URL),
		}
	}
	return out
}

const generateQueriesPrompt = `You are an expert in search engine query generation. Your task is to generate up to 5 optimized Google-style search queries for a given central bank, using its official website domain. These queries must be designed to discover listing or index pages, not individual documents (PDFs, DOCs, etc.), and should focus on pages that group reports, data, speeches, research, or news. Use advanced search operators like site:, inurl:, and intitle: with logical 'OR' to increase precision. Generate 1 query for each of the following topics, combining relevant keywords for broader coverage: 1. Publications & Reports, 2. Statistics & Data, 3. Monetary Policy & Financial Stability, 4. News, Speeches & Press, 5. Research & Working Papers. Only generate up to 5 queries per bank. Include each query with an associated topic label from this list: publications, statistics, monetary_policy, news, research. Return a JSON array with each query as an object containing 'query' and 'topic' fields.`

// QueryGenerator asks the classification oracle to write per-bank search
// queries instead of expanding the static templates.
type QueryGenerator struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
}

// NewQueryGenerator creates an oracle-backed query generator.
func NewQueryGenerator(client anthropic.Client, cfg config.AnthropicConfig) *QueryGenerator {
	return &QueryGenerator{client: client, cfg: cfg}
}

// Generate returns up to five topic-labeled queries for the bank. The
// oracle response is fence-stripped and validated: unknown topic labels
// or an unparseable array fail the call rather than degrade it.
func (g *QueryGenerator) Generate(ctx context.Context, bank model.Bank) ([]TopicQuery, error) {
	temp := g.cfg.Temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.cfg.Model,
		MaxTokens: g.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(generateQueriesPrompt),
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Bank Name: %s\nBank URL: %s", bank.Name, bank.URL),
		}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "queries: oracle request")
	}

	var queries []TopicQuery
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &queries); err != nil {
		return nil, eris.Wrapf(err, "queries: parse response: %s", truncate(resp.Text(), 200))
	}
	if len(queries) == 0 {
		return nil, eris.New("queries: oracle returned no queries")
	}
	for _, q := range queries {
		if !model.VocabularyCore.Contains(q.Topic) {
			return nil, eris.Errorf("queries: unknown topic label %q", q.Topic)
		}
	}
	return queries, nil
}
