package validation

import (
	"context"
	"fmt"

	"demounit/domain/capability"
	"demounit/domain/core"
	"demounit/domain/features"
	"demounit/ports"
)

// Protocol is the fixed stimulus a test applies and what it reads back.
type Protocol struct {
	// Stimulus is nil for recordings without current injection.
	Stimulus *capability.Current `json:"stimulus,omitempty"`
	// TStop is the simulated duration, ms.
	TStop float64 `json:"tstop"`
	// Feature is the extracted feature, empty when the prediction is read
	// directly from the voltage series.
	Feature string `json:"feature,omitempty"`
}

// stepProtocol applies a square pulse and records for as long after the
// pulse as before it.
func stepProtocol(delay, duration, amplitude float64, feature string) Protocol {
	return Protocol{
		Stimulus: &capability.Current{Delay: delay, Duration: duration, Amplitude: amplitude},
		TStop:    delay + duration + delay,
		Feature:  feature,
	}
}

// Window is the stimulus window handed to the feature extractor.
func (p Protocol) Window() (float64, float64) {
	if p.Stimulus == nil {
		return 0, p.TStop
	}
	return p.Stimulus.Delay, p.Stimulus.End()
}

// extractFeature runs p on model and returns the values of p.Feature,
// nil when the extractor could not compute it. The extractor is reset and
// given the stimulus amplitude immediately before the pulse is applied.
func (b *base) extractFeature(ctx context.Context, model ports.Model, p Protocol) ([]float64, error) {
	injector, ok := model.(capability.StepCurrentInjectable)
	if !ok {
		return nil, core.NewMissingCapabilityError(model.Name(), []string{string(capability.InjectsStepCurrent)})
	}
	producer, ok := model.(capability.MembranePotentialProducible)
	if !ok {
		return nil, core.NewMissingCapabilityError(model.Name(), []string{string(capability.ProducesMembranePotential)})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.extractor.Reset()
	if err := b.extractor.SetDoubleSetting(features.SettingStimulusCurrent, p.Stimulus.Amplitude); err != nil {
		return nil, fmt.Errorf("configure feature extractor: %w", err)
	}
	if err := injector.InjectSquareCurrent(*p.Stimulus); err != nil {
		return nil, fmt.Errorf("inject square current: %w", err)
	}

	start, end := p.Window()
	trace, err := capability.MembranePotentialTrace(ctx, producer, p.TStop, start, end)
	if err != nil {
		return nil, fmt.Errorf("record membrane potential: %w", err)
	}

	vals, err := b.extractor.GetFeatureValues([]features.Trace{trace}, []string{p.Feature})
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", p.Feature, err)
	}
	return vals[0][p.Feature], nil
}
