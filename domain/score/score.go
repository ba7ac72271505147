package score

import (
	"encoding/json"
	"fmt"
	"math"

	"demounit/domain/observation"

	"gonum.org/v1/gonum/stat/distuv"
)

// Kind distinguishes computed scores from placeholders.
type Kind string

const (
	KindZScore           Kind = "z_score"
	KindInsufficientData Kind = "insufficient_data"
)

// Sentinel is the z-score reported when a spike feature could not be
// extracted and no insufficient-data score is requested.
const Sentinel = 9999.99

// Prediction is the scalar a test derives from a model trace, or absent
// when the feature could not be extracted.
type Prediction struct {
	Value   float64
	Present bool
}

// Predicted wraps an extracted value.
func Predicted(v float64) Prediction {
	return Prediction{Value: v, Present: true}
}

// Absent is the prediction of a trace the feature could not be read from.
func Absent() Prediction {
	return Prediction{}
}

func (p Prediction) String() string {
	if !p.Present {
		return "absent"
	}
	return fmt.Sprintf("%g", p.Value)
}

// MarshalJSON encodes an absent prediction as null.
func (p Prediction) MarshalJSON() ([]byte, error) {
	if !p.Present {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON accepts a number or null.
func (p *Prediction) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*p = Absent()
		return nil
	}
	*p = Predicted(*v)
	return nil
}

// Score is the outcome of judging one model with one test.
type Score struct {
	Kind        Kind                    `json:"kind"`
	Value       float64                 `json:"value"`
	Observation observation.Observation `json:"observation"`
	Prediction  Prediction              `json:"prediction"`
}

// ComputeZ returns (prediction - mean) / std.
func ComputeZ(obs observation.Observation, prediction float64) Score {
	return Score{
		Kind:        KindZScore,
		Value:       (prediction - obs.Mean) / obs.Std,
		Observation: obs,
		Prediction:  Predicted(prediction),
	}
}

// NewZScore wraps a fixed z value that was not computed from a prediction.
func NewZScore(obs observation.Observation, value float64) Score {
	return Score{Kind: KindZScore, Value: value, Observation: obs, Prediction: Absent()}
}

// InsufficientData marks a score that could not be computed.
func InsufficientData(obs observation.Observation) Score {
	return Score{Kind: KindInsufficientData, Observation: obs, Prediction: Absent()}
}

// IsSentinel reports whether s is the fixed placeholder for an absent
// spike feature.
func (s Score) IsSentinel() bool {
	return s.Kind == KindZScore && !s.Prediction.Present && s.Value == Sentinel
}

// Norm maps a z-score onto [0, 1], where 1 is a perfect match:
// 1 - 2|0.5 - Φ(z)|. Placeholders score 0.
func (s Score) Norm() float64 {
	if s.Kind != KindZScore || !s.Prediction.Present || math.IsNaN(s.Value) {
		return 0
	}
	cdf := distuv.UnitNormal.CDF(s.Value)
	return 1 - 2*math.Abs(0.5-cdf)
}

func (s Score) String() string {
	switch {
	case s.Kind == KindInsufficientData:
		return "Insufficient Data"
	case s.IsSentinel():
		return fmt.Sprintf("Z = %.2f (no prediction)", s.Value)
	default:
		return fmt.Sprintf("Z = %.2f", s.Value)
	}
}

type scoreJSON struct {
	Kind        Kind                    `json:"kind"`
	Value       *float64                `json:"value"`
	Norm        float64                 `json:"norm"`
	Observation observation.Observation `json:"observation"`
	Prediction  Prediction              `json:"prediction"`
}

// MarshalJSON adds the norm score and writes a non-finite value
// (a zero std) as null.
func (s Score) MarshalJSON() ([]byte, error) {
	out := scoreJSON{Kind: s.Kind, Norm: s.Norm(), Observation: s.Observation, Prediction: s.Prediction}
	if s.Kind == KindZScore && !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0) {
		v := s.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the layout written by MarshalJSON. A null z value
// decodes as NaN.
func (s *Score) UnmarshalJSON(data []byte) error {
	var in scoreJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Score{Kind: in.Kind, Observation: in.Observation, Prediction: in.Prediction}
	if in.Value != nil {
		s.Value = *in.Value
	} else if in.Kind == KindZScore {
		s.Value = math.NaN()
	}
	return nil
}
