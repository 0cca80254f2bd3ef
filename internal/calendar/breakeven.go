package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrShortGrid is returned for grids with fewer than three samples.
	ErrShortGrid = errors.New("price grid needs at least 3 samples")
	// ErrLengthMismatch is returned when payoff series and grid differ in length.
	ErrLengthMismatch = errors.New("payoff series must match grid length")
	// ErrUnsortedGrid is returned when the grid is not strictly ascending.
	ErrUnsortedGrid = errors.New("price grid must be strictly ascending")
)

// BreakevenPair brackets the zero crossings of the net payoff. Both bounds are
// unavailable when fewer than two crossings were found.
type BreakevenPair struct {
	Lower Value `json:"lower"`
	Upper Value `json:"upper"`
}

// Found reports whether a bracket was located.
func (p BreakevenPair) Found() bool {
	return p.Lower.Valid() && p.Upper.Valid()
}

// Width is Upper - Lower, unavailable when no bracket was found.
func (p BreakevenPair) Width() Value {
	lo, okLo := p.Lower.Get()
	hi, okHi := p.Upper.Get()
	if !okLo || !okHi {
		return Unavailable()
	}
	return ValueOf(hi - lo)
}

// ScanOptions tunes the breakeven scan.
type ScanOptions struct {
	// Interpolate refines each bound linearly between the two grid points
	// around the crossing instead of reporting the grid point before it.
	Interpolate bool
}

// ScanBreakevens finds where long - short - debit changes sign on the grid.
// The lower bound comes from the first sign change and the upper bound from
// the last; intermediate crossings are ignored.
func ScanBreakevens(prices, long, short []float64, debit float64, opts ScanOptions) (BreakevenPair, error) {
	n := len(prices)
	if n < 3 {
		return BreakevenPair{}, fmt.Errorf("%w: got %d", ErrShortGrid, n)
	}
	if len(long) != n || len(short) != n {
		return BreakevenPair{}, fmt.Errorf("%w: grid %d, long %d, short %d", ErrLengthMismatch, n, len(long), len(short))
	}
	for i := 1; i < n; i++ {
		if prices[i] <= prices[i-1] {
			return BreakevenPair{}, fmt.Errorf("%w: index %d", ErrUnsortedGrid, i)
		}
	}

	pl := make([]float64, n)
	for i := range prices {
		pl[i] = long[i] - short[i] - debit
	}

	first, last := -1, -1
	for i := 0; i < n-1; i++ {
		if sign(pl[i]) != sign(pl[i+1]) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 || first == last {
		return BreakevenPair{}, nil
	}

	at := func(i int) float64 {
		if !opts.Interpolate || pl[i] == pl[i+1] {
			return prices[i]
		}
		return prices[i] + (prices[i+1]-prices[i])*pl[i]/(pl[i]-pl[i+1])
	}

	return BreakevenPair{
		Lower: ValueOf(at(first)),
		Upper: ValueOf(at(last)),
	}, nil
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
