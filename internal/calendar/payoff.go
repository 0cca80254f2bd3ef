package calendar

import "math"

// LinearGrid returns n evenly spaced prices from spot*low to spot*high inclusive.
func LinearGrid(spot, low, high float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	start, end := spot*low, spot*high
	if n == 1 {
		return []float64{start}
	}
	step := (end - start) / float64(n-1)
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = start + step*float64(i)
	}
	grid[n-1] = end
	return grid
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// BlackScholesCall prices a European call with continuous dividend yield q.
func BlackScholesCall(S, K, T, r, q, sigma float64) float64 {
	if sigma <= 0 || T <= 0 {
		return math.Max(S-K, 0)
	}
	d1 := (math.Log(S/K) + (r-q+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	d2 := d1 - sigma*math.Sqrt(T)
	return S*math.Exp(-q*T)*normCDF(d1) - K*math.Exp(-r*T)*normCDF(d2)
}

// PayoffModel values a long call calendar at the front leg's expiration.
type PayoffModel struct {
	// RiskFreeRate is the continuously compounded annual rate.
	RiskFreeRate float64
	// Remaining is the back leg's time to expiry, in years, once the front expires.
	Remaining float64
}

// Curves returns the long (back) and short (front) leg values across the grid.
// The back leg keeps its time value at its own smvVol; the front leg is worth
// intrinsic value only.
func (m PayoffModel) Curves(grid []float64, c Candidate) (long, short []float64) {
	long = make([]float64, len(grid))
	short = make([]float64, len(grid))
	k := c.Back.Strike
	for i, s := range grid {
		long[i] = BlackScholesCall(s, k, m.Remaining, m.RiskFreeRate, 0, c.Back.SmvVol)
		short[i] = math.Max(s-c.Front.Strike, 0)
	}
	return long, short
}
