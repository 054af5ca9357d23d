package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status represents a final state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Stage labels used while a job is running.
const (
	StageQueued           = "queued"
	StageAnalyzing        = "analyzing"
	StageGeneratingText   = "generating_content"
	StageGeneratingImages = "generating_images"
	StageCompleted        = "completed"
	StageFailed           = "failed"
	StageCancelled        = "cancelled"
)

// JobError is a terminal error recorded on a job.
type JobError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
	Issues    []ValidationIssue `json:"issues,omitempty"`
}

// JobWarning is a non-fatal problem surfaced on a completed job.
type JobWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationIssue is one failed content check.
type ValidationIssue struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ImageError records a failed image slot within a batch.
type ImageError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Image generation batch statuses.
const (
	ImageStatusIdle            = "idle"
	ImageStatusSkipped         = "skipped"
	ImageStatusNoMarkers       = "no_markers"
	ImageStatusAttempted       = "attempted"
	ImageStatusOK              = "ok"
	ImageStatusFailed          = "failed"
	ImageStatusQuotaExceeded   = "quota_exceeded"
	ImageStatusQuotaBlocked    = "quota_blocked"
	ImageStatusBillingRequired = "billing_required"
	ImageStatusMissingKey      = "missing_key"
	ImageStatusInvalidKey      = "invalid_key"
	ImageStatusUploadedOnly    = "uploaded_only"
)

// ImageGeneration summarizes one image-generation batch for a job.
type ImageGeneration struct {
	Provider          string       `json:"provider,omitempty"`
	Attempted         bool         `json:"attempted"`
	Generated         int          `json:"generated"`
	Errors            []ImageError `json:"errors"`
	Status            string       `json:"status"`
	RetryAfterSeconds int          `json:"retryAfterSeconds,omitempty"`
}

// JobEvent is one progress event in a job's append-only log. Seq is strictly
// monotonic within a single job.
type JobEvent struct {
	ID      string         `json:"id"`
	JobID   string         `json:"jobId"`
	Seq     int64          `json:"seq"`
	At      time.Time      `json:"ts"`
	Stage   string         `json:"stage"`
	Message string         `json:"message"`
	Percent int            `json:"percent"`
	Meta    map[string]any `json:"meta,omitempty"`
	Error   *JobError      `json:"error,omitempty"`
}

// Job encapsulates the lifecycle of one generation request. Records live only
// in process memory and are evicted after a TTL.
type Job struct {
	ID              string           `json:"id"`
	Status          JobStatus        `json:"status"`
	Stage           string           `json:"stage"`
	Message         string           `json:"message"`
	Percent         int              `json:"percent"`
	Attempt         int              `json:"attempt"`
	MaxAttempts     int              `json:"maxAttempts"`
	Payload         Payload          `json:"-"`
	Seed            int64            `json:"-"`
	Content         string           `json:"-"`
	GeneratedImages []string         `json:"-"`
	ImageGeneration *ImageGeneration `json:"-"`
	Error           *JobError        `json:"error,omitempty"`
	Warning         *JobWarning      `json:"warning,omitempty"`
	Cancelled       bool             `json:"-"`
	Seq             int64            `json:"lastEventSeq"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}
