package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cbdata-group/listing-cli/internal/artifact"
	"github.com/cbdata-group/listing-cli/internal/model"
	"github.com/cbdata-group/listing-cli/internal/resilience"
	"github.com/cbdata-group/listing-cli/internal/store"
	"github.com/cbdata-group/listing-cli/pkg/laterical"
)

// Runner executes the per-bank stages. Failures are unit-scoped: one
// query, one topic batch, or one bank fails without aborting siblings.
type Runner struct {
	Search     laterical.Client
	Classifier *Classifier
	Flattener  Flattener
	Artifacts  *artifact.Store
	Ledger     store.Store
	Limiter    *rate.Limiter
	Retry      resilience.RetryConfig

	// MaxHitsPerQuery truncates each query response's web hits.
	MaxHitsPerQuery int

	// Force reprocesses banks whose stage artifacts already exist.
	Force bool
}

// searchRetryable treats transport failures and retryable HTTP statuses
// as transient. An APIError means the query itself was rejected; retrying
// the same query cannot help.
func searchRetryable(err error) bool {
	var apiErr *laterical.APIError
	if errors.As(err, &apiErr) {
		return false
	}
	var statusErr *laterical.StatusError
	if errors.As(err, &statusErr) {
		return resilience.IsTransientHTTPStatus(statusErr.StatusCode)
	}
	return resilience.IsTransient(err)
}

// SearchBank runs every query for the bank against the search oracle and
// writes the raw artifact. A failed query is logged and skipped, matching
// unit-scoped failure: the bank's artifact carries whatever succeeded.
func (r *Runner) SearchBank(ctx context.Context, bank model.Bank) error {
	if r.Artifacts.HasRaw(bank) && !r.Force {
		zap.L().Info("search: artifact exists, skipping",
			zap.String("bank", bank.Name),
		)
		return r.recordStage(ctx, bank.Name, model.StageSearch, model.StageStatusSkipped, "artifact exists")
	}

	if err := r.recordStage(ctx, bank.Name, model.StageSearch, model.StageStatusRunning, ""); err != nil {
		return err
	}

	raw := model.RawResult{BankName: bank.Name}
	for _, tq := range BuildQueries(bank) {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return eris.Wrap(err, "search: rate limiter")
			}
		}

		cfg := r.Retry
		cfg.ShouldRetry = searchRetryable
		cfg.OnRetry = resilience.RetryLogger("laterical", "search")
		results, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]laterical.QueryResult, error) {
			return r.Search.Search(ctx, tq.Query)
		})
		if err != nil {
			if ctx.Err() != nil {
				return eris.Wrap(ctx.Err(), "search: canceled")
			}
			zap.L().Warn("search: query failed",
				zap.String("bank", bank.Name),
				zap.String("topic", string(tq.Topic)),
				zap.Error(err),
			)
			continue
		}

		responses := make([]model.QueryResponse, len(results))
		for i, res := range results {
			hits := res.Results.Web
			if r.MaxHitsPerQuery > 0 && len(hits) > r.MaxHitsPerQuery {
				hits = hits[:r.MaxHitsPerQuery]
			}
			web := make([]model.WebHit, len(hits))
			for j, h := range hits {
				web[j] = model.WebHit{URL: h.URL, Title: h.Title, Text: h.Text}
			}
			responses[i] = model.QueryResponse{Results: model.WebResults{Web: web}}
		}
		raw.Topics = append(raw.Topics, model.RawTopicResult{
			Topic:     tq.Topic,
			Query:     tq.Query,
			Responses: responses,
		})
	}

	if err := r.Artifacts.WriteRaw(bank, raw); err != nil {
		r.recordStage(ctx, bank.Name, model.StageSearch, model.StageStatusFailed, err.Error()) //nolint:errcheck
		return err
	}

	detail := fmt.Sprintf("%d topics, %d hits", len(raw.Topics), raw.TotalHits())
	zap.L().Info("search: bank done",
		zap.String("bank", bank.Name),
		zap.Int("topics", len(raw.Topics)),
		zap.Int("hits", raw.TotalHits()),
	)
	return r.recordStage(ctx, bank.Name, model.StageSearch, model.StageStatusComplete, detail)
}

// FilterBank flattens the bank's raw artifact through the URL filter and
// writes the filtered artifact. A missing raw artifact is a skip, not a
// failure.
func (r *Runner) FilterBank(ctx context.Context, bank model.Bank) error {
	raw, err := r.Artifacts.ReadRaw(bank)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			zap.L().Warn("filter: raw artifact absent, skipping",
				zap.String("bank", bank.Name),
			)
			return r.recordStage(ctx, bank.Name, model.StageFilter, model.StageStatusSkipped, "raw artifact absent")
		}
		r.recordStage(ctx, bank.Name, model.StageFilter, model.StageStatusFailed, err.Error()) //nolint:errcheck
		return err
	}

	filtered := r.Flattener.Flatten(raw)
	if err := r.Artifacts.WriteFiltered(bank, filtered); err != nil {
		r.recordStage(ctx, bank.Name, model.StageFilter, model.StageStatusFailed, err.Error()) //nolint:errcheck
		return err
	}

	kept := 0
	for _, b := range filtered.Blocks {
		kept += len(b.Entries)
	}
	zap.L().Info("filter: bank done",
		zap.String("bank", bank.Name),
		zap.Int("topics", len(filtered.Blocks)),
		zap.Int("entries", kept),
	)
	return r.recordStage(ctx, bank.Name, model.StageFilter, model.StageStatusComplete, fmt.Sprintf("%d entries", kept))
}

// ClassifyBank scores the bank's filtered candidates topic by topic and
// writes the classified artifact. A topic batch that fails after retries
// is omitted from the output; sibling topics still go through.
func (r *Runner) ClassifyBank(ctx context.Context, bank model.Bank) error {
	if r.Artifacts.HasClassified(bank) && !r.Force {
		zap.L().Info("classify: artifact exists, skipping",
			zap.String("bank", bank.Name),
		)
		return r.recordStage(ctx, bank.Name, model.StageClassify, model.StageStatusSkipped, "artifact exists")
	}

	filtered, err := r.Artifacts.ReadFiltered(bank)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			zap.L().Warn("classify: filtered artifact absent, skipping",
				zap.String("bank", bank.Name),
			)
			return r.recordStage(ctx, bank.Name, model.StageClassify, model.StageStatusSkipped, "filtered artifact absent")
		}
		r.recordStage(ctx, bank.Name, model.StageClassify, model.StageStatusFailed, err.Error()) //nolint:errcheck
		return err
	}

	classified := model.ClassifiedResult{BankName: filtered.BankName}
	failedTopics := 0
	for _, block := range filtered.Blocks {
		if len(block.Entries) == 0 {
			continue
		}
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return eris.Wrap(err, "classify: rate limiter")
			}
		}

		cfg := r.Retry
		cfg.OnRetry = resilience.RetryLogger("anthropic", "classify")
		scored, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.ScoredEntry, error) {
			return r.Classifier.Classify(ctx, block.Entries)
		})
		if err != nil {
			if ctx.Err() != nil {
				return eris.Wrap(ctx.Err(), "classify: canceled")
			}
			zap.L().Warn("classify: topic batch failed",
				zap.String("bank", bank.Name),
				zap.String("topic", string(block.Topic)),
				zap.Error(err),
			)
			failedTopics++
			continue
		}

		classified.Blocks = append(classified.Blocks, model.ScoredBlock{
			Topic:   block.Topic,
			Entries: scored,
		})
	}

	if err := r.Artifacts.WriteClassified(bank, classified); err != nil {
		r.recordStage(ctx, bank.Name, model.StageClassify, model.StageStatusFailed, err.Error()) //nolint:errcheck
		return err
	}

	detail := fmt.Sprintf("%d topics scored", len(classified.Blocks))
	if failedTopics > 0 {
		detail = fmt.Sprintf("%d topics scored, %d failed", len(classified.Blocks), failedTopics)
	}
	zap.L().Info("classify: bank done",
		zap.String("bank", bank.Name),
		zap.Int("topics", len(classified.Blocks)),
		zap.Int("failed_topics", failedTopics),
	)
	return r.recordStage(ctx, bank.Name, model.StageClassify, model.StageStatusComplete, detail)
}

// RunBank executes search, filter, and classify for one bank, skipping
// stages the ledger already shows complete unless Force is set.
func (r *Runner) RunBank(ctx context.Context, bank model.Bank) error {
	stages := []struct {
		stage model.Stage
		fn    func(context.Context, model.Bank) error
	}{
		{model.StageSearch, r.SearchBank},
		{model.StageFilter, r.FilterBank},
		{model.StageClassify, r.ClassifyBank},
	}

	for _, s := range stages {
		if !r.Force {
			done, err := store.StageDone(ctx, r.Ledger, bank.Name, s.stage)
			if err != nil {
				return err
			}
			if done {
				zap.L().Debug("run: stage already complete",
					zap.String("bank", bank.Name),
					zap.String("stage", string(s.stage)),
				)
				continue
			}
		}
		if err := s.fn(ctx, bank); err != nil {
			return err
		}
	}
	return nil
}

// RunBanks processes banks with bounded concurrency. A failed bank is
// logged and counted, never aborts the others.
func (r *Runner) RunBanks(ctx context.Context, banks []model.Bank, concurrency int) int {
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	failed := make([]bool, len(banks))
	for i, bank := range banks {
		g.Go(func() error {
			if err := r.RunBank(gCtx, bank); err != nil {
				zap.L().Error("run: bank failed",
					zap.String("bank", bank.Name),
					zap.Error(err),
				)
				failed[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	count := 0
	for _, f := range failed {
		if f {
			count++
		}
	}
	return count
}

func (r *Runner) recordStage(ctx context.Context, bank string, stage model.Stage, status model.StageStatus, detail string) error {
	if r.Ledger == nil {
		return nil
	}
	if _, err := r.Ledger.RecordStage(ctx, bank, stage, status, detail); err != nil {
		return eris.Wrapf(err, "pipeline: record %s %s", stage, status)
	}
	return nil
}
