package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/calscan/calscan/internal/scanner"
)

// ScanRecord is a persisted scan. Input is kept for rescoring and is not
// part of the API representation.
type ScanRecord struct {
	ID             uuid.UUID      `json:"id"`
	Ticker         string         `json:"ticker"`
	FrontExpiry    string         `json:"front_expiry"`
	Strike         float64        `json:"strike"`
	AsOf           string         `json:"as_of"`
	TopScore       *int           `json:"top_score"`
	Candidates     int            `json:"candidates"`
	Result         scanner.Result `json:"result"`
	Input          scanner.Input  `json:"-"`
	Narrative      *string        `json:"narrative,omitempty"`
	NarrativeModel *string        `json:"narrative_model,omitempty"`
	Source         string         `json:"source"` // api, watchlist, cli
	CreatedAt      time.Time      `json:"created_at"`
}

// ScanSummary is the history listing form of a scan, without rows or inputs.
type ScanSummary struct {
	ID           uuid.UUID `json:"id"`
	Ticker       string    `json:"ticker"`
	FrontExpiry  string    `json:"front_expiry"`
	Strike       float64   `json:"strike"`
	AsOf         string    `json:"as_of"`
	TopScore     *int      `json:"top_score"`
	Candidates   int       `json:"candidates"`
	HasNarrative bool      `json:"has_narrative"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
}

// ScanQuery filters the scan history.
type ScanQuery struct {
	Ticker string
	Limit  int
	Offset int
}

// NewScanRecord captures a scan result and its input for persistence.
func NewScanRecord(res scanner.Result, in scanner.Input, source string) *ScanRecord {
	rec := &ScanRecord{
		Ticker:      res.Ticker,
		FrontExpiry: res.FrontExpiry,
		Strike:      res.Strike,
		AsOf:        res.AsOf,
		Candidates:  len(res.Rows),
		Result:      res,
		Input:       in,
		Source:      source,
	}
	if len(res.Rows) > 0 {
		top := res.Rows[0].Score
		rec.TopScore = &top
	}
	return rec
}

// Summary returns the listing form of the record.
func (r *ScanRecord) Summary() ScanSummary {
	return ScanSummary{
		ID:           r.ID,
		Ticker:       r.Ticker,
		FrontExpiry:  r.FrontExpiry,
		Strike:       r.Strike,
		AsOf:         r.AsOf,
		TopScore:     r.TopScore,
		Candidates:   r.Candidates,
		HasNarrative: r.Narrative != nil,
		Source:       r.Source,
		CreatedAt:    r.CreatedAt,
	}
}
