package calendar

import (
	"errors"
	"math"
	"testing"
)

func TestIVRatio(t *testing.T) {
	tests := []struct {
		name     string
		front    float64
		back     float64
		expected float64
	}{
		{"front richer", 0.30, 0.25, 1.2},
		{"flat", 0.25, 0.25, 1.0},
		{"back richer", 0.20, 0.40, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IVRatio(tt.front, tt.back)
			if got != tt.front/tt.back {
				t.Errorf("IVRatio(%v, %v) = %v, want %v", tt.front, tt.back, got, tt.front/tt.back)
			}
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("IVRatio(%v, %v) = %v, want %v", tt.front, tt.back, got, tt.expected)
			}
		})
	}

	if got := IVRatio(0.3, 0); !math.IsNaN(got) {
		t.Errorf("IVRatio(0.3, 0) = %v, want NaN", got)
	}
}

func TestVegaThetaRatioNonPositiveNetTheta(t *testing.T) {
	tests := []struct {
		name       string
		frontTheta float64
		backTheta  float64
	}{
		{"equal decay", -0.03, -0.03},
		{"back decays faster", -0.02, -0.05},
		{"sign flipped but smaller", 0.01, -0.04},
		{"both zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VegaThetaRatio(0.10, 0.15, tt.frontTheta, tt.backTheta); !math.IsNaN(got) {
				t.Errorf("VegaThetaRatio = %v, want NaN", got)
			}
		})
	}
}

func TestPayoffRatio(t *testing.T) {
	if got := PayoffRatio(6, 2); got != 3 {
		t.Errorf("PayoffRatio(6, 2) = %v, want 3", got)
	}
	for _, debit := range []float64{0, -1.5} {
		if got := PayoffRatio(6, debit); !math.IsNaN(got) {
			t.Errorf("PayoffRatio(6, %v) = %v, want NaN", debit, got)
		}
	}
}

func TestComputeMetricsScenario(t *testing.T) {
	front := OptionLeg{Expiration: "2026-11-20", Strike: 30, SmvVol: 0.30, Vega: 0.10, Theta: -0.05}
	back := OptionLeg{Expiration: "2026-12-18", Strike: 30, SmvVol: 0.28, Vega: 0.15, Theta: -0.02}

	c, err := NewCandidate(front, back)
	if err != nil {
		t.Fatalf("NewCandidate returned error: %v", err)
	}

	m := ComputeMetrics(c, VolContext{IV20d: 0.31, HV20d: 0.29})

	checks := []struct {
		name     string
		value    Value
		expected float64
	}{
		{"iv slope", m.IVSlope, 0.02},
		{"theta advantage", m.ThetaAdvantage, 0.03},
		{"vega/theta", m.VegaTheta, 0.05 / 0.03},
		{"iv ratio", m.IVRatio, 0.30 / 0.28},
		{"hover", m.Hover, 0.02},
	}
	for _, c := range checks {
		v, ok := c.value.Get()
		if !ok {
			t.Errorf("%s unavailable", c.name)
			continue
		}
		if math.Abs(v-c.expected) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, v, c.expected)
		}
	}
}

func TestMetricsAreDeterministic(t *testing.T) {
	inputs := [][4]float64{
		{0.30, 0.28, -0.05, -0.02},
		{0.11, 0.47, -0.31, -0.30},
		{1e-9, 3.5, 0, -1},
	}
	for _, in := range inputs {
		pairs := [][2]float64{
			{IVSlope(in[0], in[1]), IVSlope(in[0], in[1])},
			{ThetaAdvantage(in[2], in[3]), ThetaAdvantage(in[2], in[3])},
			{HoverMetric(in[0], in[1]), HoverMetric(in[0], in[1])},
			{IVRatio(in[0], in[1]), IVRatio(in[0], in[1])},
			{VegaThetaRatio(in[0], in[1], in[2], in[3]), VegaThetaRatio(in[0], in[1], in[2], in[3])},
			{PayoffRatio(in[1], in[0]), PayoffRatio(in[1], in[0])},
		}
		for i, p := range pairs {
			if math.Float64bits(p[0]) != math.Float64bits(p[1]) {
				t.Errorf("input %v metric %d not bit-identical: %v vs %v", in, i, p[0], p[1])
			}
		}
	}
}

func TestNewCandidateInvariants(t *testing.T) {
	front := OptionLeg{Expiration: "2026-11-20", Strike: 100}

	if _, err := NewCandidate(front, OptionLeg{Expiration: "2026-12-18", Strike: 105}); !errors.Is(err, ErrStrikeMismatch) {
		t.Errorf("expected ErrStrikeMismatch, got %v", err)
	}
	if _, err := NewCandidate(front, OptionLeg{Expiration: "2026-11-20", Strike: 100}); !errors.Is(err, ErrExpiryOrder) {
		t.Errorf("expected ErrExpiryOrder for same expiry, got %v", err)
	}
	if _, err := NewCandidate(front, OptionLeg{Expiration: "2026-10-16", Strike: 100}); !errors.Is(err, ErrExpiryOrder) {
		t.Errorf("expected ErrExpiryOrder for earlier expiry, got %v", err)
	}
}

func TestValueJSON(t *testing.T) {
	b, err := ValueOf(math.NaN()).MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON returned error: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("NaN encoded as %s, want null", b)
	}

	var v Value
	if err := v.UnmarshalJSON([]byte("1.25")); err != nil {
		t.Fatalf("UnmarshalJSON returned error: %v", err)
	}
	if f, ok := v.Get(); !ok || f != 1.25 {
		t.Errorf("decoded %v (ok=%v), want 1.25", f, ok)
	}
	if err := v.UnmarshalJSON([]byte("null")); err != nil || v.Valid() {
		t.Errorf("null should decode to unavailable, got %v err=%v", v, err)
	}
}
