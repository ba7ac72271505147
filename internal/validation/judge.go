package validation

import (
	"context"
	"fmt"

	"demounit/domain/capability"
	"demounit/domain/score"
	"demounit/ports"
)

// Judge checks the model's capabilities, generates the test's prediction
// and scores it. A model missing a required capability is rejected before
// it is simulated.
func Judge(ctx context.Context, t Test, model ports.Model) (score.Score, error) {
	if err := capability.Require(model, t.RequiredCapabilities()); err != nil {
		return score.Score{}, err
	}
	pred, err := t.GeneratePrediction(ctx, model)
	if err != nil {
		return score.Score{}, fmt.Errorf("%s: generate prediction for model %q: %w", t.Name(), model.Name(), err)
	}
	return t.ComputeScore(t.Observation(), pred), nil
}
