package calendar

import (
	"errors"
	"fmt"
)

// ExpiryLayout is the date layout used for expirations throughout the scanner.
const ExpiryLayout = "2006-01-02"

// OptionLeg is one contract's observed analytics at a point in time.
type OptionLeg struct {
	Ticker     string  `json:"ticker"`
	Expiration string  `json:"expiration"`
	Strike     float64 `json:"strike"`
	Delta      float64 `json:"delta"`
	SmvVol     float64 `json:"smv_vol"`
	Vega       float64 `json:"vega"`
	Theta      float64 `json:"theta"`
	CallBid    float64 `json:"call_bid"`
	CallAsk    float64 `json:"call_ask"`
	CallValue  float64 `json:"call_value"`
}

// Candidate pairs a short front leg with a long back leg at the same strike.
type Candidate struct {
	Front OptionLeg
	Back  OptionLeg
}

var (
	// ErrStrikeMismatch is returned when the two legs do not share a strike.
	ErrStrikeMismatch = errors.New("calendar legs must share a strike")
	// ErrExpiryOrder is returned when the back leg does not expire after the front.
	ErrExpiryOrder = errors.New("back expiration must be after front expiration")
)

// NewCandidate validates the calendar invariants and returns the pairing.
func NewCandidate(front, back OptionLeg) (Candidate, error) {
	if front.Strike != back.Strike {
		return Candidate{}, fmt.Errorf("%w: front %.2f, back %.2f", ErrStrikeMismatch, front.Strike, back.Strike)
	}
	// Expirations use ExpiryLayout so lexical order is chronological.
	if back.Expiration <= front.Expiration {
		return Candidate{}, fmt.Errorf("%w: front %s, back %s", ErrExpiryOrder, front.Expiration, back.Expiration)
	}
	return Candidate{Front: front, Back: back}, nil
}

// VolContext is the ticker-level implied/historical volatility pair.
type VolContext struct {
	IV20d float64 `json:"iv20d"`
	HV20d float64 `json:"hv20d"`
}

// MetricSet holds the per-candidate comparison signals.
type MetricSet struct {
	IVSlope        Value `json:"iv_slope"`
	IVRatio        Value `json:"iv_ratio"`
	ThetaAdvantage Value `json:"theta_advantage"`
	VegaTheta      Value `json:"vega_theta"`
	Hover          Value `json:"hover"`
}

// ScoredResult is one ranked row of a scan.
type ScoredResult struct {
	BackExpiry string  `json:"back_expiry"`
	Strike     float64 `json:"strike"`
	Debit      Value   `json:"debit"`
	MetricSet
	Breakeven   BreakevenPair `json:"breakeven"`
	PayoffRatio Value         `json:"payoff_ratio"`
	BEMove      Value         `json:"be_move"`
	Score       int           `json:"score"`
	Breakdown   Breakdown     `json:"breakdown"`
}
