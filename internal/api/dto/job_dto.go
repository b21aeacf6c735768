package dto

import (
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

// SubmitRefreshRequest is the optional body of a market refresh submission.
// No ids means every player.
type SubmitRefreshRequest struct {
	PlayerIDs []int64 `json:"player_ids"`
}

type SubmitAnalyticsRequest struct {
	PlayerIDs []int64 `json:"player_ids"`
}

type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type JobDTO struct {
	JobID      string  `json:"job_id"`
	Kind       string  `json:"kind"`
	Status     string  `json:"status"`
	Result     *string `json:"result"`
	Error      *string `json:"error"`
	Total      int64   `json:"total"`
	Processed  int64   `json:"processed"`
	Successful int64   `json:"successful"`
	Failed     int64   `json:"failed"`
	Skipped    int64   `json:"skipped"`
	NotFound   int64   `json:"not_found"`
	CreatedAt  string  `json:"created_at"`
	StartedAt  *string `json:"started_at"`
	EndedAt    *string `json:"ended_at"`
}

// NewJobDTO renders a job record for the status endpoint
func NewJobDTO(job *jobs.Job) JobDTO {
	return JobDTO{
		JobID:      job.ID,
		Kind:       string(job.Kind),
		Status:     string(job.Status),
		Result:     optional(job.Result),
		Error:      optional(job.Error),
		Total:      job.Total,
		Processed:  job.Processed,
		Successful: job.Successful,
		Failed:     job.Failed,
		Skipped:    job.Skipped,
		NotFound:   job.NotFound,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
		StartedAt:  formatTime(job.StartedAt),
		EndedAt:    formatTime(job.EndedAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
