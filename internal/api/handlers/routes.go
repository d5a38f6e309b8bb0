package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/statement-trends/internal/api/middleware"
)

// Routes groups the handlers served by the API.
type Routes struct {
	Statements *StatementsHandler
	Assistant  *AssistantHandler
	Jobs       *JobsHandler
	Sessions   *SessionsHandler
}

// Register mounts every route on mux. Nil handlers are skipped.
func (rt Routes) Register(mux *http.ServeMux) {
	if h := rt.Statements; h != nil {
		mux.HandleFunc("GET /api/years", h.ListYears)
		mux.HandleFunc("GET /api/accounts", h.ListAccounts)
		mux.HandleFunc("GET /api/comparison", h.Comparison)
		mux.HandleFunc("GET /api/export", h.Export)
		mux.HandleFunc("POST /api/cache/refresh", h.Refresh)
	}

	if h := rt.Assistant; h != nil {
		mux.HandleFunc("POST /api/assistant/questions", h.EnqueueQuestion)
	}

	if h := rt.Jobs; h != nil {
		mux.HandleFunc("GET /api/jobs", h.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.GetJob(w, r, r.PathValue("id"))
		})
	}

	if h := rt.Sessions; h != nil {
		mux.HandleFunc("GET /api/sessions/{id}/markdown", func(w http.ResponseWriter, r *http.Request) {
			h.Markdown(w, r, r.PathValue("id"))
		})
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}
