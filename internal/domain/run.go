package domain

import "time"

// Run outcomes.
const (
	RunSuccess = "success"
	RunNoData  = "no_data"
	RunError   = "error"
)

// RunStatus reports the result of one pipeline run.
type RunStatus struct {
	RunID       string         `json:"run_id"`
	Outcome     string         `json:"outcome"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	PageSource  string         `json:"page_source,omitempty"`
	Rows        int            `json:"rows"`
	Readings    int            `json:"readings"`
	RowsSkipped map[string]int `json:"rows_skipped,omitempty"`
	SlotSkipped map[string]int `json:"slots_skipped,omitempty"`
	Error       string         `json:"error,omitempty"`
}
