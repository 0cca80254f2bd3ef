package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calscan/calscan/internal/models"
)

// MemoryScanStore keeps scans in process memory. It is used when no
// database is configured; history is lost on restart.
type MemoryScanStore struct {
	mu    sync.RWMutex
	scans map[uuid.UUID]models.ScanRecord
	now   func() time.Time
}

// NewMemoryScanStore creates an empty store.
func NewMemoryScanStore() *MemoryScanStore {
	return &MemoryScanStore{
		scans: make(map[uuid.UUID]models.ScanRecord),
		now:   time.Now,
	}
}

// Create stores a copy of rec and fills in its ID and creation time.
func (m *MemoryScanStore) Create(ctx context.Context, rec *models.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = m.now().UTC()
	m.scans[rec.ID] = *rec
	return nil
}

func (m *MemoryScanStore) Get(ctx context.Context, id uuid.UUID) (*models.ScanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.scans[id]
	if !ok {
		return nil, ErrScanNotFound
	}
	return &rec, nil
}

func (m *MemoryScanStore) List(ctx context.Context, query models.ScanQuery) ([]models.ScanSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := []models.ScanSummary{}
	for _, rec := range m.scans {
		if query.Ticker != "" && rec.Ticker != query.Ticker {
			continue
		}
		summaries = append(summaries, rec.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if query.Offset > 0 {
		if query.Offset >= len(summaries) {
			return []models.ScanSummary{}, nil
		}
		summaries = summaries[query.Offset:]
	}
	if query.Limit > 0 && len(summaries) > query.Limit {
		summaries = summaries[:query.Limit]
	}
	return summaries, nil
}

func (m *MemoryScanStore) SetNarrative(ctx context.Context, id uuid.UUID, narrative, model string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.scans[id]
	if !ok {
		return ErrScanNotFound
	}
	rec.Narrative = &narrative
	rec.NarrativeModel = &model
	m.scans[id] = rec
	return nil
}

func (m *MemoryScanStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scans[id]; !ok {
		return ErrScanNotFound
	}
	delete(m.scans, id)
	return nil
}

// MemoryInferenceLogStore keeps inference logs in process memory.
type MemoryInferenceLogStore struct {
	mu   sync.RWMutex
	logs []models.InferenceLog
}

// NewMemoryInferenceLogStore creates an empty store.
func NewMemoryInferenceLogStore() *MemoryInferenceLogStore {
	return &MemoryInferenceLogStore{}
}

func (m *MemoryInferenceLogStore) Create(ctx context.Context, log models.InferenceLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.ID = len(m.logs) + 1
	log.CreatedAt = time.Now().UTC()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MemoryInferenceLogStore) List(ctx context.Context, query models.InferenceLogQuery) ([]models.InferenceLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.InferenceLog{}
	for i := len(m.logs) - 1; i >= 0; i-- {
		log := m.logs[i]
		if !matchesLog(log, query.Provider, query.Model, query.Operation, query.Status) ||
			!inRange(log.CreatedAt, query.StartDate, query.EndDate) {
			continue
		}
		out = append(out, log)
	}

	if query.Offset > 0 {
		if query.Offset >= len(out) {
			return []models.InferenceLog{}, nil
		}
		out = out[query.Offset:]
	}
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (m *MemoryInferenceLogStore) GetStats(ctx context.Context, startDate, endDate *time.Time) (*models.InferenceLogStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		stats      models.InferenceLogStats
		latencySum int
		latencyN   int
	)
	for _, log := range m.logs {
		if !inRange(log.CreatedAt, startDate, endDate) {
			continue
		}
		stats.TotalCalls++
		stats.TotalTokens += int64(log.TokensUsed)
		if log.CostUSD != nil {
			stats.TotalCostUSD += *log.CostUSD
		}
		switch log.Status {
		case "success":
			stats.SuccessfulCalls++
		case "error":
			stats.FailedCalls++
		}
		if log.LatencyMs != nil {
			latencySum += *log.LatencyMs
			latencyN++
		}
	}
	if latencyN > 0 {
		stats.AvgLatencyMs = float64(latencySum) / float64(latencyN)
	}
	return &stats, nil
}

func matchesLog(log models.InferenceLog, provider, model, operation, status string) bool {
	return (provider == "" || log.Provider == provider) &&
		(model == "" || log.Model == model) &&
		(operation == "" || log.Operation == operation) &&
		(status == "" || log.Status == status)
}

func inRange(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}
