package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/calscan/calscan/internal/database"
	"github.com/calscan/calscan/internal/models"
	"github.com/calscan/calscan/internal/narrative"
	"github.com/calscan/calscan/internal/scanner"
)

// ScanService runs and re-scores scans.
type ScanService interface {
	Expirations(ctx context.Context, ticker string) ([]string, error)
	Scan(ctx context.Context, req scanner.Request) (scanner.Result, scanner.Input, error)
	Rescore(in scanner.Input) (scanner.Result, error)
}

// ScanHandler serves the scan API.
type ScanHandler struct {
	scans    ScanService
	store    database.ScanStore
	narrator narrative.Narrator
	logger   *slog.Logger
}

// NewScanHandler creates a scan handler.
func NewScanHandler(scans ScanService, store database.ScanStore, narrator narrative.Narrator, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		scans:    scans,
		store:    store,
		narrator: narrator,
		logger:   logger,
	}
}

// ScanResponse is a scan result with its display table.
type ScanResponse struct {
	ID             *uuid.UUID         `json:"id"`
	Result         scanner.Result     `json:"result"`
	Table          []scanner.TableRow `json:"table"`
	Narrative      *string            `json:"narrative,omitempty"`
	NarrativeModel *string            `json:"narrative_model,omitempty"`
	Source         string             `json:"source,omitempty"`
}

func newScanResponse(id *uuid.UUID, res scanner.Result) ScanResponse {
	return ScanResponse{ID: id, Result: res, Table: res.Table()}
}

// GetExpirations handles GET /api/expirations?ticker=
func (h *ScanHandler) GetExpirations(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	expirations, err := h.scans.Expirations(r.Context(), ticker)
	if err != nil {
		writeError(w, h.logger, "failed to list expirations", err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"ticker":      ticker,
		"expirations": expirations,
	})
}

// HandleScans handles POST (run) and GET (history) on /api/scans
func (h *ScanHandler) HandleScans(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, POST, OPTIONS")
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodPost:
		h.createScan(w, r)
	case http.MethodGet:
		h.listScans(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScanHandler) createScan(w http.ResponseWriter, r *http.Request) {
	var req scanner.Request
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, in, err := h.scans.Scan(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "scan failed", err)
		return
	}

	resp := newScanResponse(nil, res)
	rec := models.NewScanRecord(res, in, "api")
	if err := h.store.Create(r.Context(), rec); err != nil {
		// The scan itself succeeded; return it without an ID.
		h.logger.Warn("failed to store scan", "ticker", res.Ticker, "error", err)
	} else {
		resp.ID = &rec.ID
	}

	writeJSON(w, h.logger, http.StatusCreated, resp)
}

func (h *ScanHandler) listScans(w http.ResponseWriter, r *http.Request) {
	query := models.ScanQuery{
		Ticker: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker"))),
		Limit:  queryInt(r, "limit", 50, 500),
		Offset: queryInt(r, "offset", 0, 0),
	}

	scans, err := h.store.List(r.Context(), query)
	if err != nil {
		writeError(w, h.logger, "failed to list scans", err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"scans":  scans,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}

// scanPath splits /api/scans/{id}[/action].
func scanPath(path string) (uuid.UUID, string, error) {
	rest := strings.Trim(strings.TrimPrefix(path, "/api/scans/"), "/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, action, nil
}

// RequiresAuth reports whether a /api/scans/{id} request mutates state.
func RequiresAuth(r *http.Request) bool {
	if r.Method == http.MethodDelete {
		return true
	}
	_, action, err := scanPath(r.URL.Path)
	return err == nil && action == "narrative" && r.Method == http.MethodPost
}

// HandleScanByID handles /api/scans/{id}, /rescore and /narrative
func (h *ScanHandler) HandleScanByID(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, POST, DELETE, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	id, action, err := scanPath(r.URL.Path)
	if err != nil {
		http.Error(w, "Invalid scan ID", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getScan(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.deleteScan(w, r, id)
	case action == "rescore" && r.Method == http.MethodPost:
		h.rescore(w, r, id)
	case action == "narrative" && r.Method == http.MethodPost:
		h.narrate(w, r, id)
	case action == "" || action == "rescore" || action == "narrative":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *ScanHandler) getScan(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "failed to get scan", err)
		return
	}

	resp := newScanResponse(&rec.ID, rec.Result)
	resp.Narrative = rec.Narrative
	resp.NarrativeModel = rec.NarrativeModel
	resp.Source = rec.Source
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *ScanHandler) deleteScan(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "failed to delete scan", err)
		return
	}
	h.logger.Info("scan deleted", "scan_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScanHandler) rescore(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "failed to get scan", err)
		return
	}
	if rec.Input.Ticker == "" {
		http.Error(w, "Scan has no stored inputs", http.StatusConflict)
		return
	}

	res, err := h.scans.Rescore(rec.Input)
	if err != nil {
		writeError(w, h.logger, "rescore failed", err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, newScanResponse(&rec.ID, res))
}

func (h *ScanHandler) narrate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "failed to get scan", err)
		return
	}

	n, err := h.narrator.Narrate(r.Context(), narrative.RequestFor(rec.Result))
	if err != nil {
		writeError(w, h.logger, "narrative failed", err)
		return
	}

	if err := h.store.SetNarrative(r.Context(), id, n.Text, n.Model); err != nil && !errors.Is(err, database.ErrScanNotFound) {
		h.logger.Warn("failed to store narrative", "scan_id", id, "error", err)
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"id":        id,
		"narrative": n,
	})
}
