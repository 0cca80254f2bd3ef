package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/calscan/calscan/internal/database"
	"github.com/calscan/calscan/internal/models"
)

// InferenceLogHandler serves the LLM call log.
type InferenceLogHandler struct {
	store  database.InferenceLogStore
	logger *slog.Logger
}

// NewInferenceLogHandler creates a new handler
func NewInferenceLogHandler(store database.InferenceLogStore, logger *slog.Logger) *InferenceLogHandler {
	return &InferenceLogHandler{
		store:  store,
		logger: logger,
	}
}

func parseTimeParam(r *http.Request, key string) *time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// ListInferenceLogs handles GET /api/inference-logs
func (h *InferenceLogHandler) ListInferenceLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := models.InferenceLogQuery{
		Provider:  r.URL.Query().Get("provider"),
		Model:     r.URL.Query().Get("model"),
		Operation: r.URL.Query().Get("operation"),
		Status:    r.URL.Query().Get("status"),
		StartDate: parseTimeParam(r, "start_date"),
		EndDate:   parseTimeParam(r, "end_date"),
		Limit:     queryInt(r, "limit", 100, 1000),
		Offset:    queryInt(r, "offset", 0, 0),
	}

	logs, err := h.store.List(r.Context(), query)
	if err != nil {
		writeError(w, h.logger, "failed to list inference logs", err)
		return
	}

	stats, err := h.store.GetStats(r.Context(), query.StartDate, query.EndDate)
	if err != nil {
		writeError(w, h.logger, "failed to get inference stats", err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"stats":  stats,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}
