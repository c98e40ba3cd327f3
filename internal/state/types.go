package state

import (
	"time"

	"github.com/google/uuid"
)

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped"
)

// RunRecord captures one trigger-to-generation cycle. Records are written
// for skipped runs too, so "why did nothing happen" stays answerable later.
type RunRecord struct {
	ID         string    `json:"id"`
	Repo       string    `json:"repo"`
	Branch     string    `json:"branch"`
	Trigger    string    `json:"trigger"`
	Generation string    `json:"generation"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	Iterations int       `json:"iterations"`
	Score      int       `json:"score"`
	Improved   bool      `json:"improved"`
	Artifact   string    `json:"artifact,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunRecord starts a run record with a fresh ID.
func NewRunRecord(repo, branch string) *RunRecord {
	return &RunRecord{
		ID:        uuid.NewString(),
		Repo:      repo,
		Branch:    branch,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Complete marks the run finished successfully.
func (r *RunRecord) Complete(iterations, score int, improved bool, artifact string) {
	r.Status = RunStatusCompleted
	r.Iterations = iterations
	r.Score = score
	r.Improved = improved
	r.Artifact = artifact
	r.FinishedAt = time.Now().UTC()
}

// Fail marks the run failed with the given error.
func (r *RunRecord) Fail(err error) {
	r.Status = RunStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = time.Now().UTC()
}

// Skip marks the run skipped. The reason is the policy's verdict.
func (r *RunRecord) Skip(reason string) {
	r.Status = RunStatusSkipped
	r.Reason = reason
	r.FinishedAt = time.Now().UTC()
}
