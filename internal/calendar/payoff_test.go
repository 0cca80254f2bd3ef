package calendar

import (
	"math"
	"testing"
)

func TestLinearGrid(t *testing.T) {
	grid := LinearGrid(100, 0.8, 1.2, 5)
	want := []float64{80, 90, 100, 110, 120}
	if len(grid) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(grid))
	}
	for i := range want {
		if math.Abs(grid[i]-want[i]) > 1e-9 {
			t.Errorf("grid[%d] = %v, want %v", i, grid[i], want[i])
		}
	}

	grid = LinearGrid(100, 0.8, 1.2, 200)
	if len(grid) != 200 || grid[0] != 80 || grid[199] != 120 {
		t.Errorf("default grid spans %d points [%v, %v], want 200 [80, 120]", len(grid), grid[0], grid[len(grid)-1])
	}
	if step := 40.0 / 199; math.Abs((grid[1]-grid[0])-step) > 1e-9 {
		t.Errorf("step = %v, want %v", grid[1]-grid[0], step)
	}

	if got := LinearGrid(100, 0.8, 1.2, 0); got != nil {
		t.Errorf("expected nil grid for n=0, got %v", got)
	}
	if got := LinearGrid(100, 0.8, 1.2, 1); len(got) != 1 || got[0] != 80 {
		t.Errorf("expected single low point, got %v", got)
	}
}

func TestBlackScholesCall(t *testing.T) {
	tests := []struct {
		name                    string
		s, k, tYears, r, q, vol float64
		expected                float64
		tol                     float64
	}{
		// Hull, Options Futures and Other Derivatives, example 15.6.
		{"textbook", 42, 40, 0.5, 0.10, 0, 0.20, 4.759, 1e-3},
		{"expired in the money", 110, 100, 0, 0.04, 0, 0.3, 10, 1e-12},
		{"zero vol out of the money", 90, 100, 1, 0.04, 0, 0, 0, 1e-12},
		{"atm with dividend yield", 100, 100, 1, 0.04, 0.012, 0.20, 9.20, 1e-2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlackScholesCall(tt.s, tt.k, tt.tYears, tt.r, tt.q, tt.vol)
			if math.Abs(got-tt.expected) > tt.tol {
				t.Errorf("BlackScholesCall = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPayoffModelCurves(t *testing.T) {
	c := Candidate{
		Front: OptionLeg{Expiration: "2026-11-20", Strike: 30, SmvVol: 0.35},
		Back:  OptionLeg{Expiration: "2026-12-18", Strike: 30, SmvVol: 0.30},
	}
	grid := LinearGrid(30, 0.8, 1.2, 41)
	long, short := PayoffModel{RiskFreeRate: 0.04, Remaining: 28.0 / 365}.Curves(grid, c)

	if len(long) != len(grid) || len(short) != len(grid) {
		t.Fatalf("curve lengths %d/%d, want %d", len(long), len(short), len(grid))
	}

	for i, s := range grid {
		if short[i] != math.Max(s-30, 0) {
			t.Errorf("short[%d] = %v, want intrinsic %v", i, short[i], math.Max(s-30, 0))
		}
		if long[i] < short[i] {
			t.Errorf("back leg worth less than intrinsic at %v: %v < %v", s, long[i], short[i])
		}
	}

	// Net value peaks near the strike, which is what gives a calendar its tent.
	mid := len(grid) / 2
	if net := long[mid] - short[mid]; net <= long[0]-short[0] || net <= long[len(grid)-1]-short[len(grid)-1] {
		t.Errorf("expected net value to peak at the strike, got %v", net)
	}
}
