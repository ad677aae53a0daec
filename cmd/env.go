package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/cbdata-group/listing-cli/internal/artifact"
	"github.com/cbdata-group/listing-cli/internal/model"
	"github.com/cbdata-group/listing-cli/internal/pipeline"
	"github.com/cbdata-group/listing-cli/internal/resilience"
	"github.com/cbdata-group/listing-cli/internal/store"
	"github.com/cbdata-group/listing-cli/pkg/anthropic"
	"github.com/cbdata-group/listing-cli/pkg/laterical"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "listing-cli.db"
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initArtifacts() (*artifact.Store, error) {
	return artifact.NewStore(cfg.Data.Dir)
}

// runnerEnv bundles everything a stage command needs.
type runnerEnv struct {
	Runner    *pipeline.Runner
	Artifacts *artifact.Store
	Ledger    store.Store
}

func (e *runnerEnv) Close() {
	if e.Ledger != nil {
		e.Ledger.Close() //nolint:errcheck
	}
}

func initRunner(ctx context.Context, force bool) (*runnerEnv, error) {
	artifacts, err := initArtifacts()
	if err != nil {
		return nil, err
	}

	ledger, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	runner := &pipeline.Runner{
		Search: laterical.NewClient(
			laterical.WithBaseURL(cfg.Laterical.BaseURL),
			laterical.WithTimeout(time.Duration(cfg.Laterical.TimeoutSecs)*time.Second),
		),
		Classifier: pipeline.NewClassifier(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic),
		Flattener:  pipeline.Flattener{KeepEmptyTopics: cfg.Pipeline.KeepEmptyTopics},
		Artifacts:  artifacts,
		Ledger:     ledger,
		Limiter:    rate.NewLimiter(rate.Limit(cfg.Search.RateLimit), 1),
		Retry: resilience.RetryConfig{
			MaxAttempts: cfg.Search.Retries,
		},
		MaxHitsPerQuery: cfg.Search.MaxHitsPerQuery,
		Force:           force,
	}

	return &runnerEnv{Runner: runner, Artifacts: artifacts, Ledger: ledger}, nil
}

// requireAnthropicKey guards commands that call the classification
// oracle; search and filter run without it.
func requireAnthropicKey() error {
	if cfg.Anthropic.Key == "" {
		return eris.New("anthropic API key is required (LISTING_ANTHROPIC_KEY)")
	}
	return nil
}

// selectBanks loads the roster artifact and optionally narrows it to one
// bank by case-insensitive name.
func selectBanks(artifacts *artifact.Store, bankName string) ([]model.Bank, error) {
	banks, err := artifacts.ReadRoster()
	if err != nil {
		return nil, eris.Wrap(err, "read roster artifact (run 'banks import' first)")
	}
	if bankName == "" {
		return banks, nil
	}
	for _, b := range banks {
		if strings.EqualFold(b.Name, bankName) {
			return []model.Bank{b}, nil
		}
	}
	return nil, eris.Errorf("bank %q not found in roster", bankName)
}
