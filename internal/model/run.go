package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one invocation of the analysis pipeline.
type Run struct {
	ID        string      `json:"id"`
	Label     string      `json:"label"`
	Scenarios []string    `json:"scenarios"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds headline counts of a finished run.
type RunSummary struct {
	Units         int      `json:"units"`
	Areas         int      `json:"areas"`
	Regions       int      `json:"regions"`
	Colours       int      `json:"colours"`
	DiffScenarios []string `json:"diff_scenarios,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}
