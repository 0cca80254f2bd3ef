package scanner

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/calscan/calscan/internal/calendar"
)

// TableRow is a display-ready rendering of a scored candidate. Ratios and
// prices are rounded to three decimals; unavailable values are nil.
type TableRow struct {
	Rank        int      `json:"rank"`
	BackExpiry  string   `json:"back_expiry"`
	Strike      float64  `json:"strike"`
	Debit       *float64 `json:"debit"`
	IVSlope     *float64 `json:"iv_slope"`
	IVRatio     *float64 `json:"iv_ratio"`
	Theta       *float64 `json:"theta_advantage"`
	VegaTheta   *float64 `json:"vega_theta"`
	LowerBE     *float64 `json:"lower_be"`
	UpperBE     *float64 `json:"upper_be"`
	PayoffRatio *float64 `json:"payoff_ratio"`
	BEMove      *float64 `json:"be_move"`
	Score       int      `json:"score"`
}

// Round3 rounds half away from zero to three decimals. NaN and infinities
// pass through unchanged.
func Round3(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return decimal.NewFromFloat(f).Round(3).InexactFloat64()
}

func rounded(v calendar.Value) *float64 {
	f, ok := v.Get()
	if !ok {
		return nil
	}
	r := Round3(f)
	return &r
}

// Table renders the result's ranked rows for display.
func (r Result) Table() []TableRow {
	out := make([]TableRow, 0, len(r.Rows))
	for i, row := range r.Rows {
		out = append(out, TableRow{
			Rank:        i + 1,
			BackExpiry:  row.BackExpiry,
			Strike:      row.Strike,
			Debit:       rounded(row.Debit),
			IVSlope:     rounded(row.IVSlope),
			IVRatio:     rounded(row.IVRatio),
			Theta:       rounded(row.ThetaAdvantage),
			VegaTheta:   rounded(row.VegaTheta),
			LowerBE:     rounded(row.Breakeven.Lower),
			UpperBE:     rounded(row.Breakeven.Upper),
			PayoffRatio: rounded(row.PayoffRatio),
			BEMove:      rounded(row.BEMove),
			Score:       row.Score,
		})
	}
	return out
}
