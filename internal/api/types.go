package api

import (
	"time"

	"panelsmith/internal/job"
	"panelsmith/internal/preflight"
	"panelsmith/internal/session"
	"panelsmith/internal/workflow"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SessionView describes a credential session in a transport-friendly format.
// Key material is never echoed back.
type SessionView struct {
	Token          string `json:"token"`
	CreatedAt      string `json:"createdAt,omitempty"`
	ExpiresAt      string `json:"expiresAt,omitempty"`
	HasCredentials bool   `json:"hasCredentials"`
}

// AttachCredentialsRequest carries collaborator keys for a session.
type AttachCredentialsRequest struct {
	AnalysisKey  string `json:"analysisKey"`
	SynthesisKey string `json:"synthesisKey"`
}

// SubmitJobRequest carries a story submission.
type SubmitJobRequest struct {
	SessionToken string `json:"sessionToken"`
	Input        string `json:"input"`
	Style        string `json:"style,omitempty"`
	Chapters     string `json:"chapters,omitempty"`
	Format       string `json:"format,omitempty"`
}

// JobView describes a job in a transport-friendly format.
type JobView struct {
	Token        string      `json:"token"`
	Status       string      `json:"status"`
	Progress     int         `json:"progress"`
	Stage        string      `json:"stage"`
	Style        string      `json:"style,omitempty"`
	Chapters     string      `json:"chapters,omitempty"`
	Format       string      `json:"format,omitempty"`
	CreatedAt    string      `json:"createdAt,omitempty"`
	UpdatedAt    string      `json:"updatedAt,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	Result       *ResultView `json:"result,omitempty"`
}

// ResultView summarizes a completed job's artifact.
type ResultView struct {
	Format           string  `json:"format"`
	Pages            int     `json:"pages"`
	Panels           int     `json:"panels"`
	Characters       int     `json:"characters"`
	EstimatedCostUSD float64 `json:"estimatedCostUsd"`
}

// JobListResponse wraps the queue listing.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// HealthResponse aggregates daemon health for operators and the CLI.
type HealthResponse struct {
	Status   string         `json:"status"`
	Workflow WorkflowHealth `json:"workflow"`
	Jobs     JobCounts      `json:"jobs"`
	Checks   []CheckView    `json:"checks"`
}

// WorkflowHealth summarizes worker pool state.
type WorkflowHealth struct {
	Running   bool   `json:"running"`
	Workers   int    `json:"workers"`
	Active    int    `json:"active"`
	LastError string `json:"lastError,omitempty"`
}

// JobCounts reports job totals per lifecycle state.
type JobCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// CheckView mirrors a preflight check result.
type CheckView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ErrorBody is the structured rejection payload.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an ErrorBody for transport.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// FromSession converts a session into its wire representation.
func FromSession(s *session.Session) SessionView {
	if s == nil {
		return SessionView{}
	}
	return SessionView{
		Token:          s.Token,
		CreatedAt:      formatTime(s.CreatedAt),
		ExpiresAt:      formatTime(s.ExpiresAt),
		HasCredentials: s.HasCredentials(),
	}
}

// FromJob converts a job row into its wire representation. A result
// document that fails to decode is omitted rather than failing the view.
func FromJob(j *job.Job) JobView {
	if j == nil {
		return JobView{}
	}
	view := JobView{
		Token:        j.Token,
		Status:       string(j.Status),
		Progress:     j.Progress,
		Stage:        j.StageLabel,
		Style:        j.Style,
		Chapters:     j.ChapterSelector,
		Format:       j.OutputFormat,
		CreatedAt:    formatTime(j.CreatedAt),
		UpdatedAt:    formatTime(j.UpdatedAt),
		ErrorMessage: j.ErrorMessage,
	}
	if result, err := j.Result(); err == nil && result != nil {
		view.Result = &ResultView{
			Format:           result.Format,
			Pages:            result.Pages,
			Panels:           result.Panels,
			Characters:       result.Characters,
			EstimatedCostUSD: result.EstimatedCostUSD,
		}
	}
	return view
}

// FromJobs converts a job listing in order.
func FromJobs(jobs []*job.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, FromJob(j))
	}
	return views
}

// FromWorkflowHealth converts worker pool health.
func FromWorkflowHealth(h workflow.Health) WorkflowHealth {
	return WorkflowHealth{
		Running:   h.Running,
		Workers:   h.Workers,
		Active:    h.Active,
		LastError: h.LastErr,
	}
}

// FromHealthSummary converts store job counts.
func FromHealthSummary(s job.HealthSummary) JobCounts {
	return JobCounts{
		Total:      s.Total,
		Pending:    s.Pending,
		Processing: s.Processing,
		Completed:  s.Completed,
		Failed:     s.Failed,
	}
}

// FromChecks converts preflight results in order.
func FromChecks(results []preflight.Result) []CheckView {
	views := make([]CheckView, 0, len(results))
	for _, r := range results {
		views = append(views, CheckView{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return views
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
