package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbdata-group/listing-cli/internal/artifact"
	"github.com/cbdata-group/listing-cli/internal/model"
	"github.com/cbdata-group/listing-cli/internal/resilience"
	"github.com/cbdata-group/listing-cli/internal/store"
	"github.com/cbdata-group/listing-cli/pkg/anthropic"
	"github.com/cbdata-group/listing-cli/pkg/laterical"
)

// echoOracle scores every entry it receives with the same probability.
func echoOracle(probability float64) *mockOracle {
	return &mockOracle{
		createMessage: func(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			var entries []model.CandidateEntry
			if err := json.Unmarshal([]byte(req.Messages[0].Content), &entries); err != nil {
				return nil, err
			}
			scored := make([]map[string]any, len(entries))
			for i, e := range entries {
				scored[i] = map[string]any{
					"url": e.URL, "title": e.Title, "text": e.Text,
					"listing_probability": probability,
				}
			}
			out, _ := json.Marshal(scored)
			return textResponse(string(out)), nil
		},
	}
}

func hitsFor(urls ...string) []laterical.QueryResult {
	web := make([]laterical.WebHit, len(urls))
	for i, u := range urls {
		web[i] = laterical.WebHit{URL: u, Title: "t", Text: "x"}
	}
	return []laterical.QueryResult{{Results: laterical.WebResults{Web: web}}}
}

func newTestRunner(t *testing.T, search laterical.Client, oracle anthropic.Client) *Runner {
	t.Helper()

	artifacts, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)

	ledger, err := store.NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() }) //nolint:errcheck
	require.NoError(t, ledger.Migrate(context.Background()))

	return &Runner{
		Search:          search,
		Classifier:      NewClassifier(oracle, testAICfg),
		Artifacts:       artifacts,
		Ledger:          ledger,
		Retry:           resilience.RetryConfig{MaxAttempts: 1},
		MaxHitsPerQuery: 3,
	}
}

func TestRunBank_EndToEnd(t *testing.T) {
	search := &mockSearch{
		search: func(_ context.Context, query string) ([]laterical.QueryResult, error) {
			return hitsFor(
				"https://bank.gov/reports-index",
				"https://bank.gov/annual.pdf",
				"https://bank.gov/statistics-portal",
			), nil
		},
	}

	r := newTestRunner(t, search, echoOracle(0.9))
	bank := model.Bank{Name: "Bank of Ghana", URL: "bog.gov.gh"}
	require.NoError(t, r.RunBank(context.Background(), bank))

	assert.True(t, r.Artifacts.HasRaw(bank))
	assert.True(t, r.Artifacts.HasFiltered(bank))
	assert.True(t, r.Artifacts.HasClassified(bank))

	classified, err := r.Artifacts.ReadClassified(bank)
	require.NoError(t, err)
	require.Len(t, classified.Blocks, 8)
	for _, block := range classified.Blocks {
		// The .pdf hit is filtered out before classification.
		require.Len(t, block.Entries, 2)
		assert.Equal(t, 0.9, block.Entries[0].ListingProbability)
	}

	for _, stage := range []model.Stage{model.StageSearch, model.StageFilter, model.StageClassify} {
		done, err := store.StageDone(context.Background(), r.Ledger, bank.Name, stage)
		require.NoError(t, err)
		assert.True(t, done, "stage %s", stage)
	}
}

func TestRunBank_SkipsCompletedStages(t *testing.T) {
	calls := 0
	search := &mockSearch{
		search: func(context.Context, string) ([]laterical.QueryResult, error) {
			calls++
			return hitsFor("https://bank.gov/reports-index"), nil
		},
	}

	r := newTestRunner(t, search, echoOracle(0.9))
	bank := model.Bank{Name: "Bank of Ghana", URL: "bog.gov.gh"}
	require.NoError(t, r.RunBank(context.Background(), bank))

	before := calls
	require.NoError(t, r.RunBank(context.Background(), bank))
	assert.Equal(t, before, calls, "second run must not re-search")
}

func TestSearchBank_FailedQueryIsUnitScoped(t *testing.T) {
	search := &mockSearch{
		search: func(_ context.Context, query string) ([]laterical.QueryResult, error) {
			if strings.Contains(query, "inurl:publications") {
				return nil, &laterical.APIError{Code: "422"}
			}
			return hitsFor("https://bank.gov/data-portal"), nil
		},
	}

	r := newTestRunner(t, search, echoOracle(0.9))
	bank := model.Bank{Name: "Bank of Ghana", URL: "bog.gov.gh"}
	require.NoError(t, r.SearchBank(context.Background(), bank))

	raw, err := r.Artifacts.ReadRaw(bank)
	require.NoError(t, err)
	// The failed first topic is omitted; the other seven survive.
	assert.Len(t, raw.Topics, 7)

	run, err := r.Ledger.LatestStage(context.Background(), bank.Name, model.StageSearch)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.StageStatusComplete, run.Status)
}

func TestSearchBank_SkipsExistingArtifact(t *testing.T) {
	search := &mockSearch{
		search: func(context.Context, string) ([]laterical.QueryResult, error) {
			t.Fatal("search must not be called when the artifact exists")
			return nil, nil
		},
	}

	r := newTestRunner(t, search, echoOracle(0.9))
	bank := model.Bank{Name: "Bank of Ghana", URL: "bog.gov.gh"}
	require.NoError(t, r.Artifacts.WriteRaw(bank, model.RawResult{BankName: bank.Name}))

	require.NoError(t, r.SearchBank(context.Background(), bank))

	run, err := r.Ledger.LatestStage(context.Background(), bank.Name, model.StageSearch)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.StageStatusSkipped, run.Status)
}

func TestFilterBank_MissingRawIsSkip(t *testing.T) {
	r := newTestRunner(t, &mockSearch{}, echoOracle(0.9))
	bank := model.Bank{Name: "Bank of Ghana", URL: "bog.gov.gh"}

	require.NoError(t, r.FilterBank(context.Background(), bank))

	run, err := r.Ledger.LatestStage(context.Background(), bank.Name, model.StageFilter)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.StageStatusSkipped, run.Status)
	assert.False(t, r.Artifacts.HasFiltered(bank))
}

func TestClassifyBank_FailedTopicIsOmitted(t *testing.T) {
	call := 0
	oracle := &mockOracle{
		createMessage: func(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			call++
			if call == 1 {
				return textResponse("not json at all"), nil
			}
			return echoOracle(0.9).createMessage(ctx, req)
		},
	}

	r := newTestRunner(t, &mockSearch{}, oracle)
	bank := model.Bank{Name: "Bank of Ghana", URL: "bog.gov.gh"}
	require.NoError(t, r.Artifacts.WriteFiltered(bank, model.FilteredResult{
		BankName: bank.Name,
		Blocks: []model.CandidateBlock{
			{Topic: model.TopicNews, Entries: candidates("https://bank.gov/news-index")},
			{Topic: model.TopicResearch, Entries: candidates("https://bank.gov/papers-index")},
		},
	}))

	require.NoError(t, r.ClassifyBank(context.Background(), bank))

	classified, err := r.Artifacts.ReadClassified(bank)
	require.NoError(t, err)
	require.Len(t, classified.Blocks, 1)
	assert.Equal(t, model.TopicResearch, classified.Blocks[0].Topic)

	run, err := r.Ledger.LatestStage(context.Background(), bank.Name, model.StageClassify)
	require.NoError(t, err)
	assert.Contains(t, run.Detail, "1 failed")
}

func TestRunBanks_ProcessesAllConcurrently(t *testing.T) {
	search := &mockSearch{
		search: func(_ context.Context, query string) ([]laterical.QueryResult, error) {
			return hitsFor("https://bank.gov/reports-index"), nil
		},
	}

	r := newTestRunner(t, search, echoOracle(0.9))
	banks := []model.Bank{
		{Name: "Bank A", URL: "a.example"},
		{Name: "Bank B", URL: "b.example"},
		{Name: "Bank C", URL: "c.example"},
	}

	failed := r.RunBanks(context.Background(), banks, 2)
	assert.Equal(t, 0, failed)
	for _, b := range banks {
		assert.True(t, r.Artifacts.HasClassified(b))
	}
}

func TestRunBanks_CountsFailedBanks(t *testing.T) {
	r := newTestRunner(t, &mockSearch{}, echoOracle(0.9))
	// A dead ledger fails every bank's first stage record.
	require.NoError(t, r.Ledger.Close())

	banks := []model.Bank{
		{Name: "Bank A", URL: "a.example"},
		{Name: "Bank B", URL: "b.example"},
	}
	failed := r.RunBanks(context.Background(), banks, 1)
	assert.Equal(t, 2, failed)
}
