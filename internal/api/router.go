package api

import (
	"log/slog"
	"net/http"

	"github.com/calscan/calscan/internal/auth"
	"github.com/calscan/calscan/internal/database"
	"github.com/calscan/calscan/internal/narrative"
)

// Deps are the collaborators the API routes need.
type Deps struct {
	Scans         ScanService
	ScanStore     database.ScanStore
	InferenceLogs database.InferenceLogStore
	Narrator      narrative.Narrator
	Auth          auth.Config
	Logger        *slog.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, deps Deps) {
	scanHandler := NewScanHandler(deps.Scans, deps.ScanStore, deps.Narrator, deps.Logger)
	authHandler := NewAuthHandler(deps.Auth, deps.Logger)
	inferenceLogHandler := NewInferenceLogHandler(deps.InferenceLogs, deps.Logger)

	authMiddleware := auth.Middleware(deps.Auth)

	// Authentication routes (public)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.Handle("/api/auth/validate", authMiddleware(http.HandlerFunc(authHandler.ValidateToken)))

	// Scan routes (public for reading and running)
	mux.HandleFunc("/api/expirations", scanHandler.GetExpirations)
	mux.HandleFunc("/api/scans", scanHandler.HandleScans)
	mux.HandleFunc("/api/scans/", func(w http.ResponseWriter, r *http.Request) {
		if RequiresAuth(r) {
			authMiddleware(http.HandlerFunc(scanHandler.HandleScanByID)).ServeHTTP(w, r)
			return
		}
		scanHandler.HandleScanByID(w, r)
	})

	// Admin routes (protected)
	mux.Handle("/api/inference-logs", authMiddleware(http.HandlerFunc(inferenceLogHandler.ListInferenceLogs)))
}
