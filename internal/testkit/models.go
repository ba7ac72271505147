package testkit

import (
	"context"
	"fmt"
	"math"
	"sort"

	"demounit/domain/capability"
	"demounit/domain/core"
	"demounit/ports"
)

// Passive records a flat resting trace and cannot receive current.
type Passive struct {
	capability.UnimplementedStepCurrent
	name  string
	VRest float64 // mV
	Dt    float64 // ms
}

// NewPassive returns a passive recorder resting at vrest.
func NewPassive(name string, vrest float64) *Passive {
	return &Passive{name: name, VRest: vrest, Dt: 0.1}
}

func (m *Passive) Name() string { return m.name }

func (m *Passive) Capabilities() capability.Set {
	return capability.NewSet(capability.ProducesMembranePotential)
}

func (m *Passive) GetMembranePotential(ctx context.Context, tstop float64) ([]float64, []float64, error) {
	n := int(math.Round(tstop/m.Dt)) + 1
	t := make([]float64, n)
	v := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * m.Dt
		v[i] = m.VRest
	}
	return t, v, nil
}

// Scripted replays a fixed recording and remembers every call, for tests.
type Scripted struct {
	ModelName string
	Caps      capability.Set
	T, V      []float64
	Err       error

	Injected []capability.Current
	Stops    []float64
}

func (m *Scripted) Name() string                 { return m.ModelName }
func (m *Scripted) Capabilities() capability.Set { return m.Caps }

func (m *Scripted) InjectSquareCurrent(c capability.Current) error {
	m.Injected = append(m.Injected, c)
	return nil
}

func (m *Scripted) GetMembranePotential(ctx context.Context, tstop float64) ([]float64, []float64, error) {
	m.Stops = append(m.Stops, tstop)
	if m.Err != nil {
		return nil, nil, m.Err
	}
	return m.T, m.V, nil
}

// Reference model names.
const (
	ModelHodgkinHuxley = "hh"
	ModelPassive       = "passive"
)

// Catalog builds fresh reference models by name.
type Catalog struct {
	factories map[string]func() ports.Model
}

var _ ports.ModelCatalog = (*Catalog)(nil)

// NewCatalog returns the catalog of reference models.
func NewCatalog() *Catalog {
	return &Catalog{factories: map[string]func() ports.Model{
		ModelHodgkinHuxley: func() ports.Model { return NewHodgkinHuxley(ModelHodgkinHuxley) },
		ModelPassive:       func() ports.Model { return NewPassive(ModelPassive, -65) },
	}}
}

// Model returns a new instance of the named model.
func (c *Catalog) Model(name string) (ports.Model, error) {
	f, ok := c.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (known: %v)", core.ErrUnknownModel, name, c.Names())
	}
	return f(), nil
}

// Names lists the reference models in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.factories))
	for n := range c.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
