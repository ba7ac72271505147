package validation

import (
	"context"
	"fmt"

	"demounit/domain/capability"
	"demounit/domain/core"
	"demounit/domain/observation"
	"demounit/domain/score"
	"demounit/ports"

	"github.com/montanaflynn/stats"
)

// RestingPotential scores the median somatic potential of an
// unstimulated recording.
type RestingPotential struct {
	*base
}

var _ Test = (*RestingPotential)(nil)

// NewRestingPotential validates raw and builds the test.
func NewRestingPotential(raw map[string]any, opts ...Option) (*RestingPotential, error) {
	b, err := newBase(definitions[AliasRestingPotential], raw, opts)
	if err != nil {
		return nil, err
	}
	return &RestingPotential{base: b}, nil
}

func (t *RestingPotential) GeneratePrediction(ctx context.Context, model ports.Model) (score.Prediction, error) {
	producer, ok := model.(capability.MembranePotentialProducible)
	if !ok {
		return score.Absent(), core.NewMissingCapabilityError(model.Name(), []string{string(capability.ProducesMembranePotential)})
	}
	_, v, err := producer.GetMembranePotential(ctx, t.def.Protocol.TStop)
	if err != nil {
		return score.Absent(), fmt.Errorf("record membrane potential: %w", err)
	}
	median, err := stats.Median(v)
	if err != nil {
		return score.Absent(), fmt.Errorf("median of %d samples: %w", len(v), err)
	}
	return score.Predicted(median), nil
}

func (t *RestingPotential) ComputeScore(obs observation.Observation, pred score.Prediction) score.Score {
	return score.ComputeZ(obs, pred.Value)
}
