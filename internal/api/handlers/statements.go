package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/api/middleware"
	"github.com/dvloznov/statement-trends/internal/fiscal"
	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/present"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/rs/zerolog"
)

// MasterStore resolves account masters. *master.Store implements it.
type MasterStore interface {
	Get(kind statement.Kind) (*master.Master, error)
	Invalidate()
}

var _ MasterStore = (*master.Store)(nil)

// StatementsHandler serves years, accounts, comparisons and exports.
type StatementsHandler struct {
	registry *statement.Registry
	masters  MasterStore
	log      zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(registry *statement.Registry, masters MasterStore, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		registry: registry,
		masters:  masters,
		log:      log,
	}
}

// load resolves the kind query parameter and returns its cached load. On
// failure the error response has already been written.
func (h *StatementsHandler) load(w http.ResponseWriter, r *http.Request) (statement.Kind, *statement.LoadResult, bool) {
	kind, err := statement.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return "", nil, false
	}

	cache := h.registry.Cache(kind)
	if cache == nil {
		middleware.WriteError(w, http.StatusNotFound, fmt.Sprintf("statement kind %q is not configured", kind))
		return "", nil, false
	}

	res, err := cache.Load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to load statements")
		status := http.StatusInternalServerError
		if errors.Is(err, statement.ErrDirectoryNotFound) || errors.Is(err, statement.ErrNoLoadableFiles) {
			status = http.StatusServiceUnavailable
		}
		middleware.WriteError(w, status, err.Error())
		return "", nil, false
	}
	return kind, res, true
}

func (h *StatementsHandler) loadMaster(w http.ResponseWriter, kind statement.Kind) (*master.Master, bool) {
	m, err := h.masters.Get(kind)
	if err != nil {
		h.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to load account master")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load account master")
		return nil, false
	}
	return m, true
}

func warningStrings(ws []statement.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.String())
	}
	return out
}

// ListYears handles GET /api/years?kind=pl|bs
func (h *StatementsHandler) ListYears(w http.ResponseWriter, r *http.Request) {
	kind, res, ok := h.load(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"kind":     kind,
		"years":    res.Years,
		"default":  fiscal.DefaultSelection(res.Years),
		"warnings": warningStrings(res.Warnings),
	})
}

// ListAccounts handles GET /api/accounts?kind=pl|bs
func (h *StatementsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	kind, res, ok := h.load(w, r)
	if !ok {
		return
	}
	m, ok := h.loadMaster(w, kind)
	if !ok {
		return
	}

	options := aggregate.Options(m, res.Table)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"kind":       kind,
		"has_master": m != nil,
		"options":    options,
		"count":      len(options),
	})
}

// comparison is a computed comparison ready to serve.
type comparison struct {
	Kind   statement.Kind
	Target aggregate.Target
	Name   string
	Years  []string
	Rows   []aggregate.Row
}

// compare reads target and years from the query and runs the comparison.
// An empty years parameter selects the two most recent years.
func (h *StatementsHandler) compare(w http.ResponseWriter, r *http.Request) (*comparison, bool) {
	kind, res, ok := h.load(w, r)
	if !ok {
		return nil, false
	}

	query := r.URL.Query()
	target, err := aggregate.ParseTarget(query.Get("target"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	years := fiscal.SplitList(query.Get("years"))
	if len(years) == 0 {
		years = fiscal.DefaultSelection(res.Years)
	}
	if err := fiscal.ValidateSelection(years, res.Years); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	m, ok := h.loadMaster(w, kind)
	if !ok {
		return nil, false
	}

	rows, err := aggregate.Compare(res.Table, m, target, years)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, aggregate.ErrMasterRequired):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, aggregate.ErrInvalidTarget):
			status = http.StatusBadRequest
		}
		middleware.WriteError(w, status, err.Error())
		return nil, false
	}

	return &comparison{
		Kind:   kind,
		Target: target,
		Name:   aggregate.TargetName(m, res.Table, target),
		Years:  years,
		Rows:   rows,
	}, true
}

// Comparison handles GET /api/comparison?kind=&target=&years=R5,R6
func (h *StatementsHandler) Comparison(w http.ResponseWriter, r *http.Request) {
	c, ok := h.compare(w, r)
	if !ok {
		return
	}

	rows := c.Rows
	if rows == nil {
		rows = []aggregate.Row{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"kind":    c.Kind,
		"target":  c.Target.String(),
		"name":    c.Name,
		"years":   c.Years,
		"headers": present.Headers(),
		"rows":    rows,
		"table":   present.FormatTable(rows),
		"summary": aggregate.Summarize(rows, c.Years),
		"chart":   present.BuildChart(c.Name, rows),
	})
}

// Export handles GET /api/export?kind=&target=&years=&format=csv|xlsx
func (h *StatementsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := present.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, ok := h.compare(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := present.Export(&buf, format, c.Rows, present.DefaultSheetName); err != nil {
		h.log.Error().Err(err).Str("target", c.Target.String()).Msg("Failed to export comparison")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export comparison")
		return
	}

	filename := present.DownloadFilename(c.Name, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Refresh handles POST /api/cache/refresh
func (h *StatementsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.registry.InvalidateAll()
	h.masters.Invalidate()

	h.log.Info().Msg("Statement and master caches invalidated")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
