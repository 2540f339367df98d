package model

import "time"

// RunStatus tracks a region run through the pipeline stages.
type RunStatus string

// Run statuses.
const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusStabilizing RunStatus = "stabilizing"
	RunStatusCompositing RunStatus = "compositing"
	RunStatusSampling    RunStatus = "sampling"
	RunStatusTraining    RunStatus = "training"
	RunStatusClassifying RunStatus = "classifying"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// StageStatus is the outcome of a single pipeline stage.
type StageStatus string

// Stage statuses.
const (
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
)

// StageResult records one pipeline stage's outcome for a region run.
type StageResult struct {
	Name       string         `json:"name"`
	Status     StageStatus    `json:"status"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RunResult is the final outcome of one region's classification run.
type RunResult struct {
	Stages            []StageResult      `json:"stages"`
	FeatureBands      []string           `json:"feature_bands,omitempty"`
	SampleCount       int                `json:"sample_count,omitempty"`
	ClassPixels       map[string]float64 `json:"class_pixels,omitempty"`
	PreviewURL        string             `json:"preview_url,omitempty"`
	ClassificationURL string             `json:"classification_url,omitempty"`
	ClassMapURL       string             `json:"class_map_url,omitempty"`
	Palette           []string           `json:"palette,omitempty"`
	ErrorKind         string             `json:"error_kind,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// Run is a persisted region-classification run record.
type Run struct {
	ID        string     `json:"id"`
	Region    string     `json:"region"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
