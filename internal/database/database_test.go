package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/calscan/calscan/internal/calendar"
	"github.com/calscan/calscan/internal/models"
	"github.com/calscan/calscan/internal/scanner"
)

func sampleRecord(ticker string) *models.ScanRecord {
	res := scanner.Result{
		Ticker:      ticker,
		AsOf:        "2026-10-19",
		FrontExpiry: "2026-11-20",
		Strike:      30,
		Spot:        30.1,
		Hover:       calendar.ValueOf(0.04),
		MaxScore:    110,
		Rows: []calendar.ScoredResult{
			{BackExpiry: "2026-12-18", Strike: 30, Debit: calendar.ValueOf(0.6), Score: 88},
			{BackExpiry: "2027-01-15", Strike: 30, Debit: calendar.Unavailable(), Score: 70},
		},
	}
	in := scanner.Input{
		Ticker:        ticker,
		AsOf:          "2026-10-19",
		Spot:          30.1,
		ImpliedMove:   0.05,
		Vol:           calendar.VolContext{IV20d: 0.31, HV20d: 0.27},
		TermStructure: []float64{0.32, 0.30, 0.29, 0.28},
		Front:         calendar.OptionLeg{Ticker: ticker, Expiration: "2026-11-20", Strike: 30, SmvVol: 0.32},
		Backs: []calendar.OptionLeg{
			{Ticker: ticker, Expiration: "2026-12-18", Strike: 30, SmvVol: 0.30},
		},
	}
	return models.NewScanRecord(res, in, "api")
}

func TestCompressJSONRoundTrip(t *testing.T) {
	in := sampleRecord("SLV").Input

	data, err := compressJSON(in)
	if err != nil {
		t.Fatalf("compressJSON failed: %v", err)
	}

	var out scanner.Input
	if err := decompressJSON(data, &out); err != nil {
		t.Fatalf("decompressJSON failed: %v", err)
	}
	if out.Ticker != in.Ticker || out.Front.SmvVol != in.Front.SmvVol || len(out.Backs) != 1 {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.Vol != in.Vol {
		t.Errorf("expected vol %+v, got %+v", in.Vol, out.Vol)
	}
}

func TestDecompressJSONRejectsGarbage(t *testing.T) {
	var out scanner.Input
	if err := decompressJSON([]byte("not zstd"), &out); err == nil {
		t.Fatal("expected error for non-zstd payload")
	}
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_inference_logs.sql": {Data: []byte("SELECT 1;")},
		"001_scan_runs.sql":      {Data: []byte("SELECT 1;")},
		"003_later.sql":          {Data: []byte("SELECT 1;")},
		"README.md":              {Data: []byte("docs")},
	}

	pending, err := pendingMigrations(fsys, map[string]bool{"001_scan_runs.sql": true})
	if err != nil {
		t.Fatalf("pendingMigrations failed: %v", err)
	}

	want := []string{"002_inference_logs.sql", "003_later.sql"}
	if len(pending) != len(want) {
		t.Fatalf("expected %v, got %v", want, pending)
	}
	for i := range want {
		if pending[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, pending[i])
		}
	}
}

func TestMemoryScanStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryScanStore()
	clock := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first := sampleRecord("SLV")
	second := sampleRecord("GLD")
	third := sampleRecord("SLV")
	for _, rec := range []*models.ScanRecord{first, second, third} {
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if rec.ID == uuid.Nil {
			t.Fatal("expected ID to be assigned")
		}
	}

	got, err := store.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TopScore == nil || *got.TopScore != 88 {
		t.Errorf("expected top score 88, got %v", got.TopScore)
	}

	list, err := store.List(ctx, models.ScanQuery{Ticker: "SLV"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != third.ID {
		t.Errorf("expected newest SLV scan first, got %+v", list)
	}

	list, _ = store.List(ctx, models.ScanQuery{Limit: 1, Offset: 1})
	if len(list) != 1 || list[0].ID != second.ID {
		t.Errorf("expected second scan on page 2, got %+v", list)
	}

	if err := store.SetNarrative(ctx, first.ID, "steep front", "gpt-4o-mini"); err != nil {
		t.Fatalf("SetNarrative failed: %v", err)
	}
	got, _ = store.Get(ctx, first.ID)
	if got.Narrative == nil || *got.Narrative != "steep front" {
		t.Errorf("expected narrative to be stored, got %v", got.Narrative)
	}

	if err := store.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, first.ID); !errors.Is(err, ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}
	if err := store.Delete(ctx, first.ID); !errors.Is(err, ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound on second delete, got %v", err)
	}
	if err := store.SetNarrative(ctx, uuid.New(), "x", "y"); !errors.Is(err, ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}
}

func TestMemoryInferenceLogStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryInferenceLogStore()

	latency := func(ms int) *int { return &ms }
	cost := 0.002
	logs := []models.InferenceLog{
		{Provider: "openai", Model: "gpt-4o-mini", Operation: "scan_narrative", TokensUsed: 100, Status: "success", LatencyMs: latency(200), CostUSD: &cost},
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Operation: "scan_narrative", TokensUsed: 50, Status: "error", LatencyMs: latency(400)},
	}
	for _, l := range logs {
		if err := store.Create(ctx, l); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	list, err := store.List(ctx, models.InferenceLogQuery{Provider: "openai"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Model != "gpt-4o-mini" {
		t.Errorf("expected one openai log, got %+v", list)
	}

	stats, err := store.GetStats(ctx, nil, nil)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalCalls != 2 || stats.TotalTokens != 150 || stats.SuccessfulCalls != 1 || stats.FailedCalls != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.AvgLatencyMs != 300 {
		t.Errorf("expected average latency 300, got %v", stats.AvgLatencyMs)
	}
}

// TestPostgresScanRepository runs against a live database when
// CALSCAN_TEST_DATABASE_URL is set.
func TestPostgresScanRepository(t *testing.T) {
	dbURL := os.Getenv("CALSCAN_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("CALSCAN_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := RunMigrations(ctx, db, os.DirFS("../../migrations"), logger); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	repo := NewPostgresScanRepository(db)
	rec := sampleRecord("ZZTEST")
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer repo.Delete(ctx, rec.ID)

	got, err := repo.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Result.Rows) != 2 || got.Result.Rows[1].Debit.Valid() {
		t.Errorf("unexpected result rows: %+v", got.Result.Rows)
	}
	if len(got.Input.Backs) != 1 {
		t.Errorf("expected input to round trip, got %+v", got.Input)
	}

	if err := repo.SetNarrative(ctx, rec.ID, "narrative", "gpt-4o-mini"); err != nil {
		t.Fatalf("SetNarrative failed: %v", err)
	}
	list, err := repo.List(ctx, models.ScanQuery{Ticker: "ZZTEST", Limit: 5})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) == 0 || !list[0].HasNarrative {
		t.Errorf("expected listed scan with narrative, got %+v", list)
	}

	if err := repo.Delete(ctx, uuid.New()); !errors.Is(err, ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}
}
