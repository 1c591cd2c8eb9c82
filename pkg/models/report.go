package models

import (
	"time"

	"github.com/google/uuid"
)

// LoadResult summarizes the staging of one source file.
type LoadResult struct {
	Source  string        `yaml:"source"`
	Table   string        `yaml:"table"`
	Rows    int64         `yaml:"rows"`
	Batches int           `yaml:"batches"`
	Elapsed time.Duration `yaml:"elapsed"`
}

// InsertCount reports how many candidate rows a stage inserted and how many
// it skipped on conflict or dropped as unresolved.
type InsertCount struct {
	Table    string `yaml:"table"`
	Read     int64  `yaml:"read"`
	Inserted int64  `yaml:"inserted"`
	Skipped  int64  `yaml:"skipped"`
	Dropped  int64  `yaml:"dropped"`
}

// RunStatus is the outcome of a pipeline run or stage.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// StageReport is what one stage did.
type StageReport struct {
	Stage   StageName     `yaml:"stage"`
	Status  RunStatus     `yaml:"status"`
	Elapsed time.Duration `yaml:"elapsed"`
	Loads   []LoadResult  `yaml:"loads,omitempty"`
	Counts  []InsertCount `yaml:"counts,omitempty"`
	Error   string        `yaml:"error,omitempty"`
}

// RunReport is the per-run summary the driver logs and optionally persists.
type RunReport struct {
	RunID       uuid.UUID        `yaml:"run_id"`
	Status      RunStatus        `yaml:"status"`
	StartedAt   time.Time        `yaml:"started_at"`
	CompletedAt time.Time        `yaml:"completed_at"`
	Stages      []StageReport    `yaml:"stages"`
	TableCounts map[string]int64 `yaml:"table_counts,omitempty"`
	Error       string           `yaml:"error,omitempty"`
}

// IntegrityCheck is one warehouse consistency probe; Violations must be zero.
type IntegrityCheck struct {
	Name       string `yaml:"name"`
	Violations int64  `yaml:"violations"`
}
