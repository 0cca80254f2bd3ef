package calendar

import (
	"encoding/json"
	"math"
)

// Value is a metric that may be unavailable. Degenerate inputs (zero
// denominators, missing breakevens) produce an unavailable Value instead of a
// NaN so that threshold comparisons can never silently evaluate false.
type Value struct {
	v  float64
	ok bool
}

// ValueOf wraps f, treating NaN and ±Inf as unavailable.
func ValueOf(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{v: f, ok: true}
}

// Unavailable returns an empty Value.
func Unavailable() Value {
	return Value{}
}

// Get returns the wrapped float and whether it is available.
func (x Value) Get() (float64, bool) {
	return x.v, x.ok
}

// Valid reports whether the value is available.
func (x Value) Valid() bool {
	return x.ok
}

// Float returns the wrapped float, or NaN when unavailable.
func (x Value) Float() float64 {
	if !x.ok {
		return math.NaN()
	}
	return x.v
}

// MarshalJSON encodes unavailable values as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

// UnmarshalJSON accepts a number or null.
func (x *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*x = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*x = ValueOf(f)
	return nil
}
