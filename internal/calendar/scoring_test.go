package calendar

import (
	"math"
	"testing"
)

func row(slope, ratio, debit, theta, vt, beMove float64) ScoredResult {
	return ScoredResult{
		Debit: ValueOf(debit),
		MetricSet: MetricSet{
			IVSlope:        ValueOf(slope),
			IVRatio:        ValueOf(ratio),
			ThetaAdvantage: ValueOf(theta),
			VegaTheta:      ValueOf(vt),
		},
		BEMove: ValueOf(beMove),
	}
}

func TestScoreReferenceRow(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig())
	debits := NewDebitStats([]Value{ValueOf(1.10), ValueOf(1.45), ValueOf(2.05)})

	b := scorer.Score(row(0.05, 1.03, 1.10, 0.01, math.NaN(), 0.95), debits, ValueOf(0.02))

	want := Breakdown{IVSlope: 20, IVRatio: 20, Debit: 20, Theta: 15, VegaTheta: 4, BEMove: 15, Hover: 10}
	if b != want {
		t.Errorf("breakdown = %+v, want %+v", b, want)
	}
	if b.Total() != 104 {
		t.Errorf("total = %d, want 104", b.Total())
	}
}

func TestScoreTiers(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig())
	debits := NewDebitStats([]Value{ValueOf(1), ValueOf(2), ValueOf(3), ValueOf(4)})

	tests := []struct {
		name  string
		row   ScoredResult
		hover Value
		want  Breakdown
	}{
		{
			name:  "middle tiers",
			row:   row(-0.01, 0.99, 2.5, -0.01, 0.8, 0.6),
			hover: ValueOf(-0.01),
			want:  Breakdown{IVSlope: 12, IVRatio: 12, Debit: 12, Theta: 8, VegaTheta: 6, BEMove: 8},
		},
		{
			name:  "bottom tiers",
			row:   row(-0.05, 0.90, 4, -0.05, 0.2, 0.3),
			hover: ValueOf(0),
			want:  Breakdown{Debit: 6, VegaTheta: 2},
		},
		{
			name:  "boundaries",
			row:   row(0, 1.02, 1, 0, 1.3, 0.9),
			hover: ValueOf(0.001),
			want:  Breakdown{IVSlope: 12, IVRatio: 20, Debit: 20, Theta: 8, VegaTheta: 10, BEMove: 15, Hover: 10},
		},
		{
			name: "everything unavailable",
			row: ScoredResult{
				Debit:  Unavailable(),
				BEMove: Unavailable(),
			},
			hover: Unavailable(),
			want:  Breakdown{Debit: 6, VegaTheta: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.row, debits, tt.hover)
			if got != tt.want {
				t.Errorf("breakdown = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewDebitStats(t *testing.T) {
	tests := []struct {
		name       string
		debits     []Value
		wantMin    float64
		wantMedian float64
	}{
		{"odd count", []Value{ValueOf(3), ValueOf(1), ValueOf(2)}, 1, 2},
		{"even count", []Value{ValueOf(4), ValueOf(1), ValueOf(3), ValueOf(2)}, 1, 2.5},
		{"skips unavailable", []Value{ValueOf(5), Unavailable(), ValueOf(1)}, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDebitStats(tt.debits)
			if s.Min != tt.wantMin || s.Median != tt.wantMedian {
				t.Errorf("stats = %+v, want min %v median %v", s, tt.wantMin, tt.wantMedian)
			}
		})
	}
}

func TestScoreAllRanksDescending(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig())
	rows := []ScoredResult{
		row(-0.05, 0.90, 3.0, -0.05, 0.2, 0.3),
		row(0.05, 1.03, 1.0, 0.01, 1.5, 0.95),
		row(-0.05, 0.90, 3.0, -0.05, 0.2, 0.3),
		row(-0.01, 0.99, 2.0, -0.01, 0.8, 0.6),
	}
	rows[0].BackExpiry = "first-tie"
	rows[2].BackExpiry = "second-tie"

	ranked := scorer.ScoreAll(rows, ValueOf(0.01))

	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Score < ranked[i].Score {
			t.Fatalf("rows not sorted: %d before %d", ranked[i-1].Score, ranked[i].Score)
		}
	}
	if ranked[0].Score != 110 {
		t.Errorf("top score = %d, want 110", ranked[0].Score)
	}
	if ranked[2].BackExpiry != "first-tie" || ranked[3].BackExpiry != "second-tie" {
		t.Errorf("ties reordered: %s, %s", ranked[2].BackExpiry, ranked[3].BackExpiry)
	}
	if rows[0].Score != 0 {
		t.Error("ScoreAll should not mutate its input")
	}
}

func TestDefaultMaxScore(t *testing.T) {
	if got := DefaultScoringConfig().MaxScore(); got != 110 {
		t.Errorf("MaxScore() = %d, want 110", got)
	}
}
