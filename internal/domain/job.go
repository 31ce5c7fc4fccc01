package domain

import "time"

// JobStatus tracks the lifecycle of a job run. running -> success|failed
// transitions are terminal.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// JobRun is one execution of a scheduled job. JobKey, when set, is the
// deterministic window identifier used by the idempotency predicate.
type JobRun struct {
	ID           string     `json:"id"`
	JobName      string     `json:"job_name"`
	JobKey       *string    `json:"job_key,omitempty"`
	Status       JobStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// ModelOutput links a game to the driver run that produced one or more cards.
type ModelOutput struct {
	ID             string    `json:"id"`
	GameID         string    `json:"game_id"`
	ModelName      string    `json:"model_name"`
	ModelVersion   string    `json:"model_version"`
	PredictionType string    `json:"prediction_type"`
	PredictedAt    time.Time `json:"predicted_at"`
	Confidence     float64   `json:"confidence"`
	Output         []byte    `json:"output,omitempty"`
	OddsSnapshotID *string   `json:"odds_snapshot_id,omitempty"`
	JobRunID       *string   `json:"job_run_id,omitempty"`
}
