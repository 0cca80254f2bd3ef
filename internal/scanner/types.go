package scanner

import (
	"github.com/calscan/calscan/internal/calendar"
	"github.com/calscan/calscan/internal/config"
)

// Request selects the ticker and front expiration to scan. Strike is optional;
// when zero the ATM strike of the front expiration is used.
type Request struct {
	Ticker      string  `json:"ticker"`
	FrontExpiry string  `json:"front_expiry"`
	Strike      float64 `json:"strike,omitempty"`
}

// Input is everything a scan evaluates, captured so a stored scan can be
// re-scored without calling the vendor again.
type Input struct {
	Ticker        string               `json:"ticker"`
	AsOf          string               `json:"as_of"`
	Spot          float64              `json:"spot"`
	ImpliedMove   float64              `json:"implied_move"`
	Vol           calendar.VolContext  `json:"vol"`
	TermStructure []float64            `json:"term_structure"`
	Front         calendar.OptionLeg   `json:"front"`
	Backs         []calendar.OptionLeg `json:"backs"`
	Skipped       []Skip               `json:"skipped,omitempty"`
}

// Skip records a back expiration that could not be evaluated.
type Skip struct {
	Expiry string `json:"expiry"`
	Reason string `json:"reason"`
}

// TermPoint is one point of the ATM implied-volatility term structure.
type TermPoint struct {
	Month int     `json:"month"`
	ATMIV float64 `json:"atm_iv"`
}

// Result is the ranked output of a scan.
type Result struct {
	Ticker         string                  `json:"ticker"`
	AsOf           string                  `json:"as_of"`
	FrontExpiry    string                  `json:"front_expiry"`
	Strike         float64                 `json:"strike"`
	Spot           float64                 `json:"spot"`
	ImpliedMoveAbs calendar.Value          `json:"implied_move_abs"`
	Hover          calendar.Value          `json:"hover"`
	MaxScore       int                     `json:"max_score"`
	Rows           []calendar.ScoredResult `json:"rows"`
	TermStructure  []TermPoint             `json:"term_structure"`
	Skipped        []Skip                  `json:"skipped,omitempty"`
}

// Settings control the price grid and payoff model.
type Settings struct {
	GridPoints   int
	GridLow      float64
	GridHigh     float64
	Interpolate  bool
	RiskFreeRate float64
}

// SettingsFromConfig maps scan configuration onto scanner settings.
func SettingsFromConfig(cfg config.ScanConfig) Settings {
	return Settings{
		GridPoints:   cfg.GridPoints,
		GridLow:      cfg.GridLow,
		GridHigh:     cfg.GridHigh,
		Interpolate:  cfg.Interpolate,
		RiskFreeRate: cfg.RiskFreeRate,
	}
}

// DefaultSettings is a 200-point grid from 0.8x to 1.2x spot.
func DefaultSettings() Settings {
	return Settings{
		GridPoints:   200,
		GridLow:      0.8,
		GridHigh:     1.2,
		RiskFreeRate: 0.04,
	}
}
