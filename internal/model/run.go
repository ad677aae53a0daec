package model

import "time"

// Stage names the pipeline stages tracked in the run ledger.
type Stage string

const (
	StageSearch   Stage = "search"
	StageFilter   Stage = "filter"
	StageClassify Stage = "classify"
)

// StageStatus is the recorded outcome of one stage for one bank.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// BankRun is one ledger row: the outcome of one stage for one bank.
// A bank whose latest row for a stage is complete is skipped on re-run,
// which is what makes restarts idempotent.
type BankRun struct {
	ID        string      `json:"id"`
	BankName  string      `json:"bank_name"`
	Stage     Stage       `json:"stage"`
	Status    StageStatus `json:"status"`
	Detail    string      `json:"detail,omitempty"`
	StartedAt time.Time   `json:"started_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
