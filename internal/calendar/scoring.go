package calendar

import (
	"sort"
)

// Thresholds are the cut-offs separating award tiers for each signal.
type Thresholds struct {
	IVSlopeStrong   float64 `yaml:"iv_slope_strong" json:"iv_slope_strong"`
	IVSlopeWeak     float64 `yaml:"iv_slope_weak" json:"iv_slope_weak"`
	IVRatioStrong   float64 `yaml:"iv_ratio_strong" json:"iv_ratio_strong"`
	IVRatioWeak     float64 `yaml:"iv_ratio_weak" json:"iv_ratio_weak"`
	ThetaStrong     float64 `yaml:"theta_strong" json:"theta_strong"`
	ThetaWeak       float64 `yaml:"theta_weak" json:"theta_weak"`
	VegaThetaStrong float64 `yaml:"vega_theta_strong" json:"vega_theta_strong"`
	VegaThetaWeak   float64 `yaml:"vega_theta_weak" json:"vega_theta_weak"`
	BEMoveStrong    float64 `yaml:"be_move_strong" json:"be_move_strong"`
	BEMoveWeak      float64 `yaml:"be_move_weak" json:"be_move_weak"`
	Hover           float64 `yaml:"hover" json:"hover"`
}

// Points are the awards for each tier.
type Points struct {
	IVSlopeStrong        int `yaml:"iv_slope_strong" json:"iv_slope_strong"`
	IVSlopeWeak          int `yaml:"iv_slope_weak" json:"iv_slope_weak"`
	IVRatioStrong        int `yaml:"iv_ratio_strong" json:"iv_ratio_strong"`
	IVRatioWeak          int `yaml:"iv_ratio_weak" json:"iv_ratio_weak"`
	DebitMin             int `yaml:"debit_min" json:"debit_min"`
	DebitMedian          int `yaml:"debit_median" json:"debit_median"`
	DebitOther           int `yaml:"debit_other" json:"debit_other"`
	ThetaStrong          int `yaml:"theta_strong" json:"theta_strong"`
	ThetaWeak            int `yaml:"theta_weak" json:"theta_weak"`
	VegaThetaUnavailable int `yaml:"vega_theta_unavailable" json:"vega_theta_unavailable"`
	VegaThetaStrong      int `yaml:"vega_theta_strong" json:"vega_theta_strong"`
	VegaThetaWeak        int `yaml:"vega_theta_weak" json:"vega_theta_weak"`
	VegaThetaOther       int `yaml:"vega_theta_other" json:"vega_theta_other"`
	BEMoveStrong         int `yaml:"be_move_strong" json:"be_move_strong"`
	BEMoveWeak           int `yaml:"be_move_weak" json:"be_move_weak"`
	Hover                int `yaml:"hover" json:"hover"`
}

// ScoringConfig is the full set of scoring heuristics.
type ScoringConfig struct {
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
	Points     Points     `yaml:"points" json:"points"`
}

// DefaultScoringConfig returns the standard heuristics (max score 110).
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Thresholds: Thresholds{
			IVSlopeStrong:   0,
			IVSlopeWeak:     -0.03,
			IVRatioStrong:   1.02,
			IVRatioWeak:     0.97,
			ThetaStrong:     0,
			ThetaWeak:       -0.02,
			VegaThetaStrong: 1.3,
			VegaThetaWeak:   0.7,
			BEMoveStrong:    0.9,
			BEMoveWeak:      0.5,
			Hover:           0,
		},
		Points: Points{
			IVSlopeStrong:        20,
			IVSlopeWeak:          12,
			IVRatioStrong:        20,
			IVRatioWeak:          12,
			DebitMin:             20,
			DebitMedian:          12,
			DebitOther:           6,
			ThetaStrong:          15,
			ThetaWeak:            8,
			VegaThetaUnavailable: 4,
			VegaThetaStrong:      10,
			VegaThetaWeak:        6,
			VegaThetaOther:       2,
			BEMoveStrong:         15,
			BEMoveWeak:           8,
			Hover:                10,
		},
	}
}

// MaxScore is the best achievable total under this configuration.
func (c ScoringConfig) MaxScore() int {
	p := c.Points
	vt := max(p.VegaThetaStrong, p.VegaThetaWeak, p.VegaThetaOther, p.VegaThetaUnavailable)
	return max(p.IVSlopeStrong, p.IVSlopeWeak) +
		max(p.IVRatioStrong, p.IVRatioWeak) +
		max(p.DebitMin, p.DebitMedian, p.DebitOther) +
		max(p.ThetaStrong, p.ThetaWeak) +
		vt +
		max(p.BEMoveStrong, p.BEMoveWeak) +
		p.Hover
}

// Breakdown records the points awarded per signal.
type Breakdown struct {
	IVSlope   int `json:"iv_slope"`
	IVRatio   int `json:"iv_ratio"`
	Debit     int `json:"debit"`
	Theta     int `json:"theta"`
	VegaTheta int `json:"vega_theta"`
	BEMove    int `json:"be_move"`
	Hover     int `json:"hover"`
}

// Total sums the awards.
func (b Breakdown) Total() int {
	return b.IVSlope + b.IVRatio + b.Debit + b.Theta + b.VegaTheta + b.BEMove + b.Hover
}

// DebitStats is the cross-sectional context for debit scoring.
type DebitStats struct {
	Min    float64
	Median float64
	ok     bool
}

// NewDebitStats summarises the available debits of one scan.
func NewDebitStats(debits []Value) DebitStats {
	vals := make([]float64, 0, len(debits))
	for _, d := range debits {
		if v, ok := d.Get(); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return DebitStats{}
	}
	sort.Float64s(vals)
	n := len(vals)
	med := vals[n/2]
	if n%2 == 0 {
		med = (vals[n/2-1] + vals[n/2]) / 2
	}
	return DebitStats{Min: vals[0], Median: med, ok: true}
}

// Scorer awards points to scan rows.
type Scorer struct {
	cfg ScoringConfig
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(cfg ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() ScoringConfig {
	return s.cfg
}

// Score evaluates one row against the scan's debits and the ticker hover.
// Every signal checks availability before comparing.
func (s *Scorer) Score(row ScoredResult, debits DebitStats, hover Value) Breakdown {
	t, p := s.cfg.Thresholds, s.cfg.Points
	var b Breakdown

	if v, ok := row.IVSlope.Get(); ok {
		switch {
		case v > t.IVSlopeStrong:
			b.IVSlope = p.IVSlopeStrong
		case v > t.IVSlopeWeak:
			b.IVSlope = p.IVSlopeWeak
		}
	}

	if v, ok := row.IVRatio.Get(); ok {
		switch {
		case v >= t.IVRatioStrong:
			b.IVRatio = p.IVRatioStrong
		case v >= t.IVRatioWeak:
			b.IVRatio = p.IVRatioWeak
		}
	}

	b.Debit = p.DebitOther
	if v, ok := row.Debit.Get(); ok && debits.ok {
		switch {
		case v == debits.Min:
			b.Debit = p.DebitMin
		case v <= debits.Median:
			b.Debit = p.DebitMedian
		}
	}

	if v, ok := row.ThetaAdvantage.Get(); ok {
		switch {
		case v > t.ThetaStrong:
			b.Theta = p.ThetaStrong
		case v > t.ThetaWeak:
			b.Theta = p.ThetaWeak
		}
	}

	if v, ok := row.VegaTheta.Get(); !ok {
		b.VegaTheta = p.VegaThetaUnavailable
	} else {
		switch {
		case v >= t.VegaThetaStrong:
			b.VegaTheta = p.VegaThetaStrong
		case v >= t.VegaThetaWeak:
			b.VegaTheta = p.VegaThetaWeak
		default:
			b.VegaTheta = p.VegaThetaOther
		}
	}

	if v, ok := row.BEMove.Get(); ok {
		switch {
		case v >= t.BEMoveStrong:
			b.BEMove = p.BEMoveStrong
		case v >= t.BEMoveWeak:
			b.BEMove = p.BEMoveWeak
		}
	}

	if v, ok := hover.Get(); ok && v > t.Hover {
		b.Hover = p.Hover
	}

	return b
}

// ScoreAll scores every row against the cross-section of all rows' debits,
// then ranks them by score descending. Ties keep their input order.
func (s *Scorer) ScoreAll(rows []ScoredResult, hover Value) []ScoredResult {
	debits := make([]Value, len(rows))
	for i, r := range rows {
		debits[i] = r.Debit
	}
	stats := NewDebitStats(debits)

	out := make([]ScoredResult, len(rows))
	for i, r := range rows {
		r.Breakdown = s.Score(r, stats, hover)
		r.Score = r.Breakdown.Total()
		out[i] = r
	}
	Rank(out)
	return out
}

// Rank sorts rows by score descending, keeping input order for ties.
func Rank(rows []ScoredResult) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
}
