// Package capability declares the operations a neuron model must expose to
// be validated: receiving a square current step at the soma and producing
// a somatic membrane-potential recording.
//
// Models declare the capabilities they support through Declarer. Tests
// declare the capabilities they need, and Require rejects a model before
// any simulation is run when the two sets do not match.
package capability

import (
	"context"
	"fmt"
	"sort"

	"demounit/domain/core"
	"demounit/domain/features"
)

// Name identifies a capability.
type Name string

const (
	InjectsStepCurrent        Name = "StepCurrentInjectable"
	ProducesMembranePotential Name = "MembranePotentialProducible"
)

// Current describes a rectangular current pulse.
type Current struct {
	Delay     float64 `json:"delay"`     // ms
	Duration  float64 `json:"duration"`  // ms
	Amplitude float64 `json:"amplitude"` // nA
}

// End is the time the pulse switches off, in ms.
func (c Current) End() float64 {
	return c.Delay + c.Duration
}

// Validate rejects pulses with negative timing.
func (c Current) Validate() error {
	if c.Delay < 0 || c.Duration < 0 {
		return fmt.Errorf("current pulse must have non-negative delay and duration, got delay=%g duration=%g", c.Delay, c.Duration)
	}
	return nil
}

// StepCurrentInjectable is implemented by models that accept a square
// current pulse at the soma. The pulse applies to the next recording.
type StepCurrentInjectable interface {
	InjectSquareCurrent(current Current) error
}

// MembranePotentialProducible is implemented by models that can run a
// simulation for tstop ms and return the somatic recording as paired,
// equal-length time (ms) and potential (mV) series.
type MembranePotentialProducible interface {
	GetMembranePotential(ctx context.Context, tstop float64) (t []float64, v []float64, err error)
}

// Declarer is anything that states which capabilities it supports.
type Declarer interface {
	Name() string
	Capabilities() Set
}

// UnimplementedStepCurrent can be embedded by models that do not support
// current injection. Calling its method reports core.ErrNotImplemented.
type UnimplementedStepCurrent struct{}

func (UnimplementedStepCurrent) InjectSquareCurrent(Current) error {
	return core.NewNotImplementedError(string(InjectsStepCurrent), "InjectSquareCurrent")
}

// UnimplementedMembranePotential is the recording counterpart of
// UnimplementedStepCurrent.
type UnimplementedMembranePotential struct{}

func (UnimplementedMembranePotential) GetMembranePotential(context.Context, float64) ([]float64, []float64, error) {
	return nil, nil, core.NewNotImplementedError(string(ProducesMembranePotential), "GetMembranePotential")
}

// MembranePotentialTrace runs the model to tstop and repackages its
// recording into the record feature extractors expect, tagged with the
// stimulus window [start, stop].
func MembranePotentialTrace(ctx context.Context, m MembranePotentialProducible, tstop, start, stop float64) (features.Trace, error) {
	t, v, err := m.GetMembranePotential(ctx, tstop)
	if err != nil {
		return features.Trace{}, err
	}
	return features.NewTrace(t, v, start, stop), nil
}

// Set is an unordered collection of capability names.
type Set []Name

// NewSet builds a Set from names, dropping duplicates.
func NewSet(names ...Name) Set {
	s := make(Set, 0, len(names))
	for _, n := range names {
		if !s.Contains(n) {
			s = append(s, n)
		}
	}
	return s
}

// Contains reports whether n is in the set.
func (s Set) Contains(n Name) bool {
	for _, have := range s {
		if have == n {
			return true
		}
	}
	return false
}

// Strings returns the names in sorted order.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, n := range s {
		out[i] = string(n)
	}
	sort.Strings(out)
	return out
}

// Implements reports whether value satisfies the Go interface behind n.
func Implements(value any, n Name) bool {
	switch n {
	case InjectsStepCurrent:
		_, ok := value.(StepCurrentInjectable)
		return ok
	case ProducesMembranePotential:
		_, ok := value.(MembranePotentialProducible)
		return ok
	default:
		return false
	}
}

// Require checks required ⊆ declared for model. A capability counts only
// when the model both declares it and has the matching method set.
func Require(model Declarer, required Set) error {
	declared := model.Capabilities()
	var missing []string
	for _, n := range required {
		if !declared.Contains(n) || !Implements(model, n) {
			missing = append(missing, string(n))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return core.NewMissingCapabilityError(model.Name(), missing)
	}
	return nil
}
