// Package observation holds the experimental ground truth a test scores a
// model against.
package observation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"demounit/domain/core"
)

// Observation is the mean and standard deviation of one measured quantity.
type Observation struct {
	Mean float64 `json:"mean" yaml:"mean" db:"observation_mean"`
	Std  float64 `json:"std" yaml:"std" db:"observation_std"`
}

// Map returns the observation in its exchange layout.
func (o Observation) Map() map[string]any {
	return map[string]any{"mean": o.Mean, "std": o.Std}
}

// Parse validates raw and converts it to an Observation. raw must have
// exactly the keys "mean" and "std", each holding an integer or a float.
// Anything else fails with a *core.ObservationError.
func Parse(raw map[string]any) (Observation, error) {
	if raw == nil {
		return Observation{}, core.NewObservationError("observation is empty")
	}
	if len(raw) != 2 {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return Observation{}, core.NewObservationError("expected 2 keys, got %d %v", len(raw), keys)
	}

	var obs Observation
	for key, val := range raw {
		num, ok := number(val)
		if !ok {
			return Observation{}, core.NewObservationError("value of %q is %T, not a number", key, val)
		}
		switch key {
		case "mean":
			obs.Mean = num
		case "std":
			obs.Std = num
		default:
			return Observation{}, core.NewObservationError("unexpected key %q", key)
		}
	}
	return obs, nil
}

// Validate reports whether raw has the required shape.
func Validate(raw map[string]any) error {
	_, err := Parse(raw)
	return err
}

// number accepts Go integer and float kinds plus json.Number. Booleans,
// strings and NaN are rejected.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// String renders the observation for logs.
func (o Observation) String() string {
	return fmt.Sprintf("{mean: %g, std: %g}", o.Mean, o.Std)
}
