// Package database persists scans and inference logs in PostgreSQL, with
// in-memory fallbacks for running without a database.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/calscan/calscan/internal/models"
)

// ErrScanNotFound is returned when a scan ID does not exist.
var ErrScanNotFound = errors.New("scan not found")

// ScanStore stores scan history.
type ScanStore interface {
	Create(ctx context.Context, rec *models.ScanRecord) error
	Get(ctx context.Context, id uuid.UUID) (*models.ScanRecord, error)
	List(ctx context.Context, query models.ScanQuery) ([]models.ScanSummary, error)
	SetNarrative(ctx context.Context, id uuid.UUID, narrative, model string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InferenceLogStore stores LLM call logs.
type InferenceLogStore interface {
	Create(ctx context.Context, log models.InferenceLog) error
	List(ctx context.Context, query models.InferenceLogQuery) ([]models.InferenceLog, error)
	GetStats(ctx context.Context, startDate, endDate *time.Time) (*models.InferenceLogStats, error)
}
