package job

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a generation job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// UserCancelMessage is the error message recorded when a user cancels a job.
const UserCancelMessage = "cancelled by user"

// QueuedLabel is the stage label carried by jobs waiting for a worker.
const QueuedLabel = "Queued"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status can never change again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Options are the submission parameters recorded alongside a job.
type Options struct {
	Style           string
	ChapterSelector string
	OutputFormat    string
}

// Result is the artifact summary persisted when a job completes.
type Result struct {
	ArtifactPath     string  `json:"artifact_path"`
	Format           string  `json:"format"`
	Pages            int     `json:"pages"`
	Panels           int     `json:"panels"`
	Characters       int     `json:"characters"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Encode serializes the result for storage in the job row.
func (r Result) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// Job represents one end-to-end generation request persisted in SQLite.
// Credential material is never stored here; workers resolve it from the
// session at claim time.
type Job struct {
	Token           string
	SessionToken    string
	InputPayload    string
	Style           string
	ChapterSelector string
	OutputFormat    string
	Status          Status
	Progress        int
	StageLabel      string
	ErrorMessage    string
	ResultJSON      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// Result decodes the persisted result document. Returns nil when the job has
// no result yet.
func (j *Job) Result() (*Result, error) {
	if j == nil || strings.TrimSpace(j.ResultJSON) == "" {
		return nil, nil
	}
	var result Result
	if err := json.Unmarshal([]byte(j.ResultJSON), &result); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	return &result, nil
}

// IsTerminal reports whether the job reached a final state.
func (j *Job) IsTerminal() bool {
	return j != nil && j.Status.IsTerminal()
}

// Update is a partial merge applied to a job row. Only non-nil fields
// overwrite; everything else keeps its stored value. The zero Update touches
// nothing but the updated_at column.
type Update struct {
	Status       *Status
	Progress     *int
	StageLabel   *string
	ErrorMessage *string
	ResultJSON   *string
}

// WithStatus sets the status field.
func (u Update) WithStatus(status Status) Update {
	u.Status = &status
	return u
}

// WithProgress sets the progress field.
func (u Update) WithProgress(progress int) Update {
	u.Progress = &progress
	return u
}

// WithStageLabel sets the stage label field.
func (u Update) WithStageLabel(label string) Update {
	u.StageLabel = &label
	return u
}

// WithErrorMessage sets the error message field.
func (u Update) WithErrorMessage(message string) Update {
	u.ErrorMessage = &message
	return u
}

// WithResultJSON sets the result document field.
func (u Update) WithResultJSON(resultJSON string) Update {
	u.ResultJSON = &resultJSON
	return u
}

// IsZero reports whether the update carries no field changes.
func (u Update) IsZero() bool {
	return u.Status == nil && u.Progress == nil && u.StageLabel == nil &&
		u.ErrorMessage == nil && u.ResultJSON == nil
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
