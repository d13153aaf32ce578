package domain

import "time"

// JobStatus enumerates pregeneration job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// PregenRequest carries the filters of one generate_all invocation.
type PregenRequest struct {
	Force      bool       `json:"force"`
	PortraitID PortraitID `json:"portrait_id,omitempty"`
	BuildType  BuildType  `json:"build_type,omitempty"`
}

// Combinations expands the filters against the preset cross product.
func (r PregenRequest) Combinations() []Combination {
	return FilterCombinations(r.PortraitID, r.BuildType)
}

// PregenJob tracks a queued or running generate_all invocation.
type PregenJob struct {
	ID         string
	Request    PregenRequest
	Status     JobStatus
	Result     *BatchRun
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}
