package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focustrack/focustrack/internal/config"
	"github.com/focustrack/focustrack/internal/metrics"
	"github.com/focustrack/focustrack/internal/models"
	"github.com/focustrack/focustrack/internal/reporter"
	"github.com/focustrack/focustrack/internal/tracker"
	"github.com/focustrack/focustrack/pkg/utils"
)

const defaultHistoryLimit = 100

// Service is the tracker surface the API exposes. *tracker.Tracker implements it.
type Service interface {
	Snapshot() tracker.Snapshot
	History() []models.ActivityEntry
	Sprints() []models.SprintEntry
	SamplerName() string
	EndActivity(ctx context.Context) error
	BeginSprint(ctx context.Context) (tracker.SprintState, error)
	EndSprint(ctx context.Context) (models.SprintEntry, error)
	Reset(ctx context.Context) error
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	tracker.Snapshot
	Sampler        string `json:"sampler"`
	PollInterval   string `json:"poll_interval"`
	IdleTimeout    string `json:"idle_timeout"`
	StorageBackend string `json:"storage_backend"`
	Sprints        int    `json:"sprints"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	config   *config.Config
	service  Service
	reporter *reporter.Reporter
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewHandler(cfg *config.Config, svc Service, m *metrics.Metrics, logger zerolog.Logger) (*Handler, error) {
	rep, err := reporter.New(cfg, svc)
	if err != nil {
		return nil, err
	}
	return &Handler{
		config:   cfg,
		service:  svc,
		reporter: rep,
		metrics:  m,
		logger:   logger,
	}, nil
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/current", h.handleCurrent)
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/api/sprints", h.handleSprints)
	mux.HandleFunc("/api/sprint/start", h.handleSprintStart)
	mux.HandleFunc("/api/sprint/end", h.handleSprintEnd)
	mux.HandleFunc("/api/activity/end", h.handleActivityEnd)
	mux.HandleFunc("/api/clear", h.handleClear)
	mux.HandleFunc("/api/report", h.handleReport)
	mux.HandleFunc("/api/summary", h.handleSummary)

	mux.HandleFunc("/health", h.handleHealth)

	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics.Handler())
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	respondJSON(w, http.StatusOK, StatusResponse{
		Snapshot:       h.service.Snapshot(),
		Sampler:        h.service.SamplerName(),
		PollInterval:   h.config.Tracker.PollInterval.String(),
		IdleTimeout:    h.config.Tracker.IdleTimeout.String(),
		StorageBackend: h.config.Storage.Backend,
		Sprints:        len(h.service.Sprints()),
	})
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	current := h.service.Snapshot().Current
	if current == nil {
		respondError(w, http.StatusNotFound, "no open activity")
		return
	}

	respondJSON(w, http.StatusOK, current)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", limitStr))
			return
		}
		limit = l
	}

	history := h.service.History()
	// limit=0 returns everything
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	respondJSON(w, http.StatusOK, history)
}

func (h *Handler) handleSprints(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	respondJSON(w, http.StatusOK, h.service.Sprints())
}

func (h *Handler) handleSprintStart(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	state, err := h.service.BeginSprint(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, state)
}

func (h *Handler) handleSprintEnd(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	entry, err := h.service.EndSprint(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleActivityEnd(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.service.EndActivity(r.Context()); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.service.Reset(r.Context()); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(h.reporter.FormatReportText(report)))
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleSummary serves the per-app totals, as an HTML fragment for htmx requests.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondSummaryHTML(w, report.Apps, report.TotalMillis)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"period":   report.Period,
		"apps":     report.Apps,
		"total_ms": report.TotalMillis,
	})
}

func (h *Handler) respondSummaryHTML(w http.ResponseWriter, summaries []models.AppSummary, totalMillis int64) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(summaries) == 0 {
		w.Write([]byte(`<div class="loading">No data available</div>`))
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, app := range summaries {
		fmt.Fprintf(&b, `<div class="app-item"><span class="app-name">%s</span><span class="app-time">%s</span><span class="app-percent">%.1f%%</span></div>`,
			html.EscapeString(app.AppName),
			utils.FormatRoundedUnit(app.TotalMillis),
			app.Percentage)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Total: %s</div>`, utils.FormatRoundedUnit(totalMillis))

	w.Write([]byte(b.String()))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tracker.ErrSprintActive), errors.Is(err, tracker.ErrNoSprint):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error().Err(err).
			Str("request_id", RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
