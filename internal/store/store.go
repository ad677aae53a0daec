// Package store persists the run ledger: one row per bank per stage
// attempt. The ledger is what makes re-runs idempotent: a bank whose
// latest row for a stage is complete is skipped without touching its
// artifact.
package store

import (
	"context"

	"github.com/cbdata-group/listing-cli/internal/model"
)

// RunFilter specifies criteria for listing ledger rows.
type RunFilter struct {
	BankName string
	Stage    model.Stage
	Status   model.StageStatus
	Limit    int
}

// Store defines the run-ledger interface.
type Store interface {
	// RecordStage appends a ledger row for one bank and stage.
	RecordStage(ctx context.Context, bankName string, stage model.Stage, status model.StageStatus, detail string) (*model.BankRun, error)

	// LatestStage returns the most recent row for the bank and stage,
	// or nil if the bank has never run that stage.
	LatestStage(ctx context.Context, bankName string, stage model.Stage) (*model.BankRun, error)

	// ListRuns returns ledger rows matching the filter, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.BankRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// StageDone reports whether the bank's latest attempt at the stage
// completed, which is the skip condition for idempotent re-runs.
func StageDone(ctx context.Context, s Store, bankName string, stage model.Stage) (bool, error) {
	run, err := s.LatestStage(ctx, bankName, stage)
	if err != nil {
		return false, err
	}
	return run != nil && run.Status == model.StageStatusComplete, nil
}
