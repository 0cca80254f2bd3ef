package calendar

import "math"

// IVSlope is front IV minus back IV. Positive means the short leg is richer.
func IVSlope(frontIV, backIV float64) float64 {
	return frontIV - backIV
}

// IVRatio is front IV over back IV, NaN when back IV is zero.
func IVRatio(frontIV, backIV float64) float64 {
	if backIV == 0 {
		return math.NaN()
	}
	return frontIV / backIV
}

// ThetaAdvantage is how much faster the front leg decays than the back leg.
func ThetaAdvantage(frontTheta, backTheta float64) float64 {
	return math.Abs(frontTheta) - math.Abs(backTheta)
}

// VegaThetaRatio is net vega per unit of net theta. NaN when net theta is not
// positive.
func VegaThetaRatio(frontVega, backVega, frontTheta, backTheta float64) float64 {
	netTheta := math.Abs(frontTheta) - math.Abs(backTheta)
	if netTheta <= 0 {
		return math.NaN()
	}
	return (backVega - frontVega) / netTheta
}

// HoverMetric is the ticker-level volatility richness, IV20 minus HV20.
func HoverMetric(iv20d, hv20d float64) float64 {
	return iv20d - hv20d
}

// PayoffRatio is breakeven width per unit of debit, NaN for a non-positive debit.
func PayoffRatio(breakevenWidth, debit float64) float64 {
	if debit <= 0 {
		return math.NaN()
	}
	return breakevenWidth / debit
}

// ComputeMetrics evaluates every signal for a candidate.
func ComputeMetrics(c Candidate, vol VolContext) MetricSet {
	f, b := c.Front, c.Back
	return MetricSet{
		IVSlope:        ValueOf(IVSlope(f.SmvVol, b.SmvVol)),
		IVRatio:        ValueOf(IVRatio(f.SmvVol, b.SmvVol)),
		ThetaAdvantage: ValueOf(ThetaAdvantage(f.Theta, b.Theta)),
		VegaTheta:      ValueOf(VegaThetaRatio(f.Vega, b.Vega, f.Theta, b.Theta)),
		Hover:          ValueOf(HoverMetric(vol.IV20d, vol.HV20d)),
	}
}
