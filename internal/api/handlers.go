package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"panelsmith/internal/export"
	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/preflight"
	"panelsmith/internal/session"
	"panelsmith/internal/story"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.writeJSON(w, http.StatusCreated, FromSession(sess))
}

func (s *Server) handleAttachCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")

	var req AttachCredentialsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}

	creds := session.Credentials{
		AnalysisKey:  req.AnalysisKey,
		SynthesisKey: req.SynthesisKey,
	}
	if err := s.sessions.Attach(token, creds); err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}

	sess := s.sessions.Get(token)
	if sess == nil {
		s.writeError(ctx, w, CodeNotFound, "session expired during attach")
		return
	}
	s.writeJSON(w, http.StatusOK, FromSession(sess))
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitJobRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}

	sess := s.sessions.Get(strings.TrimSpace(req.SessionToken))
	if sess == nil {
		s.writeError(ctx, w, CodeNotFound, "unknown or expired session")
		return
	}
	if !sess.HasCredentials() {
		s.writeError(ctx, w, CodeMissingCredentials, "session has no credentials attached")
		return
	}

	input := strings.TrimSpace(req.Input)
	if input == "" {
		s.writeError(ctx, w, CodeValidation, "story input is empty")
		return
	}
	if _, err := story.ParseSelector(req.Chapters); err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}

	formatValue := strings.TrimSpace(req.Format)
	if formatValue == "" {
		formatValue = s.cfg.Export.DefaultFormat
	}
	format, err := export.ParseFormat(formatValue)
	if err != nil {
		s.writeError(ctx, w, CodeValidation, err.Error())
		return
	}

	created, err := s.jobs.Create(ctx, sess.Token, req.Input, job.Options{
		Style:           req.Style,
		ChapterSelector: req.Chapters,
		OutputFormat:    string(format),
	})
	if err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}

	logging.WithContext(ctx, s.logger).Info("job submitted",
		logging.String(logging.FieldJobToken, created.Token),
		logging.String("format", created.OutputFormat))
	s.writeJSON(w, http.StatusCreated, FromJob(created))
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")

	found, err := s.jobs.GetByToken(ctx, token)
	if err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}
	if found == nil {
		s.writeError(ctx, w, CodeNotFound, "unknown job token")
		return
	}
	s.writeJSON(w, http.StatusOK, FromJob(found))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var statuses []job.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := job.ParseStatus(trimmed)
		if !ok {
			s.writeError(ctx, w, CodeValidation, fmt.Sprintf("unknown status filter %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	items, err := s.jobs.List(ctx, statuses...)
	if err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: FromJobs(items)})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")

	if s.workflow == nil {
		s.writeError(ctx, w, CodeInternal, "workflow manager unavailable")
		return
	}
	if err := s.workflow.Cancel(ctx, token); err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}

	cancelled, err := s.jobs.GetByToken(ctx, token)
	if err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}
	if cancelled == nil {
		s.writeError(ctx, w, CodeNotFound, "unknown job token")
		return
	}
	s.writeJSON(w, http.StatusOK, FromJob(cancelled))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := HealthResponse{Status: "ok"}

	if s.workflow != nil {
		resp.Workflow = FromWorkflowHealth(s.workflow.Health())
	}
	if !resp.Workflow.Running {
		resp.Status = "degraded"
	}

	summary, err := s.jobs.Health(ctx)
	if err != nil {
		resp.Status = "degraded"
		logging.WithContext(ctx, s.logger).Warn("job store health query failed", logging.Error(err))
	} else {
		resp.Jobs = FromHealthSummary(summary)
	}

	checks := preflight.RunAll(s.cfg)
	resp.Checks = FromChecks(checks)
	if !preflight.Healthy(checks) {
		resp.Status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, resp)
}
