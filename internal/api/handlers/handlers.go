package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/statement-trends/internal/api/middleware"
	"github.com/dvloznov/statement-trends/internal/chatlog"
	"github.com/dvloznov/statement-trends/internal/jobs"
	"github.com/rs/zerolog"
)

// AssistantHandler enqueues assistant questions.
type AssistantHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(publisher jobs.Publisher, log zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		publisher: publisher,
		log:       log,
	}
}

// EnqueueQuestion handles POST /api/assistant/questions
func (h *AssistantHandler) EnqueueQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Theme     string `json:"theme"`
		Question  string `json:"question"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	job := &jobs.AssistantJob{
		SessionID: req.SessionID,
		Theme:     req.Theme,
		Question:  req.Question,
	}

	if err := h.publisher.PublishAssistantQuery(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue assistant question")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue assistant question")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("session_id", job.SessionID).Msg("Assistant question enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"session_id": job.SessionID,
		"status":     string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		SessionID: query.Get("session_id"),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.AssistantJob{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// SessionsHandler exports assistant conversations.
type SessionsHandler struct {
	logs      *chatlog.Store
	modelName string
	log       zerolog.Logger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(logs *chatlog.Store, modelName string, log zerolog.Logger) *SessionsHandler {
	return &SessionsHandler{
		logs:      logs,
		modelName: modelName,
		log:       log,
	}
}

// Markdown handles GET /api/sessions/{id}/markdown. With ?format=html the
// document is rendered to HTML instead.
func (h *SessionsHandler) Markdown(w http.ResponseWriter, r *http.Request, sessionID string) {
	var (
		body        []byte
		err         error
		contentType = "text/markdown; charset=utf-8"
	)
	if r.URL.Query().Get("format") == "html" {
		body, err = h.logs.RenderHTML(sessionID, h.modelName)
		contentType = "text/html; charset=utf-8"
	} else {
		body, err = h.logs.Markdown(sessionID, h.modelName)
	}

	if err != nil {
		switch {
		case errors.Is(err, chatlog.ErrSessionNotFound):
			middleware.WriteError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, chatlog.ErrInvalidSession):
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to export session")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to export session")
		}
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
