// Package validation defines the tests a neuron model is scored with.
//
// Every test follows the same three steps: the observation is validated
// when the test is built, a prediction is generated by driving the model
// through a fixed stimulus protocol, and the prediction is scored against
// the observation as a z-score. Judge runs the steps in order after
// checking that the model has the capabilities the test requires.
package validation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"demounit/adapters/efeature"
	"demounit/domain/capability"
	"demounit/domain/observation"
	"demounit/domain/score"
	"demounit/ports"
)

// Test is the contract every validation test satisfies.
type Test interface {
	Alias() string
	Name() string
	Description() string
	RequiredCapabilities() capability.Set
	Observation() observation.Observation
	Definition() Definition

	// ValidateObservation fails with *core.ObservationError unless raw is
	// exactly {mean, std} with numeric values.
	ValidateObservation(raw map[string]any) error
	// GeneratePrediction drives the model and extracts the scalar the test
	// compares against the observation.
	GeneratePrediction(ctx context.Context, model ports.Model) (score.Prediction, error)
	// ComputeScore turns a prediction into a score.
	ComputeScore(obs observation.Observation, pred score.Prediction) score.Score
}

// AbsentPolicy decides how spike tests score a trace without spikes.
type AbsentPolicy int

const (
	// AbsentSentinel scores an absent prediction as the fixed z-score
	// score.Sentinel.
	AbsentSentinel AbsentPolicy = iota
	// AbsentInsufficientData scores it as score.KindInsufficientData.
	AbsentInsufficientData
)

func (p AbsentPolicy) String() string {
	switch p {
	case AbsentInsufficientData:
		return "insufficient_data"
	default:
		return "sentinel"
	}
}

// ParseAbsentPolicy maps a configuration value to a policy.
func ParseAbsentPolicy(s string) (AbsentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sentinel":
		return AbsentSentinel, nil
	case "insufficient_data", "insufficient-data":
		return AbsentInsufficientData, nil
	default:
		return AbsentSentinel, fmt.Errorf("unknown absent score policy %q (use sentinel or insufficient_data)", s)
	}
}

// Option customises a test at construction.
type Option func(*base)

// WithName overrides the default test name.
func WithName(name string) Option {
	return func(b *base) {
		if name != "" {
			b.name = name
		}
	}
}

// WithExtractor replaces the test's own feature extractor. The test still
// resets and configures it before every use.
func WithExtractor(ext ports.FeatureExtractor) Option {
	return func(b *base) {
		if ext != nil {
			b.extractor = ext
		}
	}
}

// WithAbsentPolicy selects how spike tests score an absent prediction.
func WithAbsentPolicy(p AbsentPolicy) Option {
	return func(b *base) {
		b.absent = p
	}
}

// base carries what every test shares: its definition, the validated
// observation and a test-local feature extractor.
type base struct {
	def    Definition
	name   string
	obs    observation.Observation
	absent AbsentPolicy

	// mu serialises reset, configure and extract on extractor.
	mu        sync.Mutex
	extractor ports.FeatureExtractor
}

func newBase(def Definition, raw map[string]any, opts []Option) (*base, error) {
	b := &base{def: def, name: def.Name}
	for _, opt := range opts {
		opt(b)
	}
	if b.extractor == nil {
		b.extractor = efeature.New()
	}
	obs, err := observation.Parse(raw)
	if err != nil {
		return nil, err
	}
	b.obs = obs
	return b, nil
}

func (b *base) Alias() string                        { return b.def.Alias }
func (b *base) Name() string                         { return b.name }
func (b *base) Description() string                  { return b.def.Description }
func (b *base) RequiredCapabilities() capability.Set { return b.def.Capabilities }
func (b *base) Observation() observation.Observation { return b.obs }

func (b *base) ValidateObservation(raw map[string]any) error {
	return observation.Validate(raw)
}

func (b *base) Definition() Definition {
	d := b.def
	d.Name = b.name
	return d
}
