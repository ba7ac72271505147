package validation

import (
	"context"

	"demounit/domain/observation"
	"demounit/domain/score"
	"demounit/ports"
)

// spikeTest reads the first value of a spike feature from a short
// depolarising pulse. A pulse that evokes no spike yields an absent
// prediction rather than an error.
type spikeTest struct {
	*base
}

func (t *spikeTest) GeneratePrediction(ctx context.Context, model ports.Model) (score.Prediction, error) {
	vals, err := t.extractFeature(ctx, model, t.def.Protocol)
	if err != nil {
		return score.Absent(), err
	}
	if len(vals) == 0 {
		return score.Absent(), nil
	}
	return score.Predicted(vals[0]), nil
}

// ComputeScore scores an absent prediction per the test's AbsentPolicy.
func (t *spikeTest) ComputeScore(obs observation.Observation, pred score.Prediction) score.Score {
	if !pred.Present {
		if t.absent == AbsentInsufficientData {
			return score.InsufficientData(obs)
		}
		return score.NewZScore(obs, score.Sentinel)
	}
	return score.ComputeZ(obs, pred.Value)
}

// APHeight scores the amplitude of the first action potential.
type APHeight struct {
	spikeTest
}

var _ Test = (*APHeight)(nil)

// NewAPHeight validates raw and builds the test.
func NewAPHeight(raw map[string]any, opts ...Option) (*APHeight, error) {
	b, err := newBase(definitions[AliasAPHeight], raw, opts)
	if err != nil {
		return nil, err
	}
	return &APHeight{spikeTest{base: b}}, nil
}

// APHalfWidth scores the half-width duration of the first action
// potential.
type APHalfWidth struct {
	spikeTest
}

var _ Test = (*APHalfWidth)(nil)

// NewAPHalfWidth validates raw and builds the test.
func NewAPHalfWidth(raw map[string]any, opts ...Option) (*APHalfWidth, error) {
	b, err := newBase(definitions[AliasAPHalfWidth], raw, opts)
	if err != nil {
		return nil, err
	}
	return &APHalfWidth{spikeTest{base: b}}, nil
}
