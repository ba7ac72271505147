package validation

import (
	"context"

	"demounit/domain/core"
	"demounit/domain/observation"
	"demounit/domain/score"
	"demounit/ports"
)

// InputResistance scores the steady-state ohmic input resistance measured
// with a hyperpolarising step.
type InputResistance struct {
	*base
}

var _ Test = (*InputResistance)(nil)

// NewInputResistance validates raw and builds the test.
func NewInputResistance(raw map[string]any, opts ...Option) (*InputResistance, error) {
	b, err := newBase(definitions[AliasInputResistance], raw, opts)
	if err != nil {
		return nil, err
	}
	return &InputResistance{base: b}, nil
}

// GeneratePrediction fails with core.ErrFeatureUnavailable when the
// resistance cannot be measured; this test has no placeholder score.
func (t *InputResistance) GeneratePrediction(ctx context.Context, model ports.Model) (score.Prediction, error) {
	vals, err := t.extractFeature(ctx, model, t.def.Protocol)
	if err != nil {
		return score.Absent(), err
	}
	if len(vals) == 0 {
		return score.Absent(), core.NewFeatureUnavailableError(t.def.Protocol.Feature)
	}
	return score.Predicted(vals[0]), nil
}

func (t *InputResistance) ComputeScore(obs observation.Observation, pred score.Prediction) score.Score {
	return score.ComputeZ(obs, pred.Value)
}
