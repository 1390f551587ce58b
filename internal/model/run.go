package model

import "time"

// RunStatus represents the current state of a featurization run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusResolving   RunStatus = "resolving"
	RunStatusExtracting  RunStatus = "extracting"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// RunStats summarizes a completed run for the run store.
type RunStats struct {
	Points        int     `json:"points"`
	Batches       int     `json:"batches"`
	ScenesFound   int     `json:"scenes_found"`
	ValidRows     int     `json:"valid_rows"`
	InvalidRows   int     `json:"invalid_rows"`
	FeatureDim    int     `json:"feature_dim"`
	DurationSecs  float64 `json:"duration_secs"`
	OutputPath    string  `json:"output_path,omitempty"`
}

// Run is one recorded featurization job.
type Run struct {
	ID        string
	Dataset   string
	Status    RunStatus
	Stats     *RunStats
	CreatedAt time.Time
	UpdatedAt time.Time
}
