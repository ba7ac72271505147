package testkit

import (
	"context"
	"math"

	"demounit/domain/capability"
)

// Chans holds one value per ionic channel.
type Chans struct {
	Na float64
	K  float64
	L  float64
}

// SetAll sets all the values
func (ch *Chans) SetAll(na, k, l float64) {
	ch.Na, ch.K, ch.L = na, k, l
}

// HHParams are the parameters of a single-compartment Hodgkin-Huxley soma.
type HHParams struct {
	Gbar  Chans   // maximal conductances, mS/cm²
	Erev  Chans   // reversal potentials, mV
	Cm    float64 // membrane capacitance, µF/cm²
	Area  float64 // membrane area, cm²; converts injected nA into µA/cm²
	Dt    float64 // integration step, ms
	VInit float64 // initial membrane potential, mV
}

// Defaults sets the squid-axon parameters with a 126 µm diameter soma.
func (p *HHParams) Defaults() {
	p.Gbar.SetAll(120, 36, 0.3)
	p.Erev.SetAll(50, -77, -54.387)
	p.Cm = 1
	p.Area = 5e-4
	p.Dt = 0.01
	p.VInit = -65
}

// CurrentDensity converts a somatic current in nA into µA/cm².
func (p *HHParams) CurrentDensity(nA float64) float64 {
	return nA * 1e-3 / p.Area
}

// hhState is the membrane potential plus the gating variables.
type hhState struct {
	V, M, H, N float64
}

// vtrap computes x / (exp(x/y) - 1) without the 0/0 at x = 0.
func vtrap(x, y float64) float64 {
	if math.Abs(x/y) < 1e-6 {
		return y * (1 - x/y/2)
	}
	return x / (math.Exp(x/y) - 1)
}

func rates(v float64) (am, bm, ah, bh, an, bn float64) {
	am = 0.1 * vtrap(-(v + 40), 10)
	bm = 4 * math.Exp(-(v+65)/18)
	ah = 0.07 * math.Exp(-(v+65)/20)
	bh = 1 / (1 + math.Exp(-(v+35)/10))
	an = 0.01 * vtrap(-(v + 55), 10)
	bn = 0.125 * math.Exp(-(v+65)/80)
	return
}

// restState puts the gates at their steady state for VInit.
func (p *HHParams) restState() hhState {
	am, bm, ah, bh, an, bn := rates(p.VInit)
	return hhState{
		V: p.VInit,
		M: am / (am + bm),
		H: ah / (ah + bh),
		N: an / (an + bn),
	}
}

// step advances s by one Dt with injected current density i (µA/cm²).
// Gates use exponential Euler, the potential forward Euler.
func (p *HHParams) step(s *hhState, i float64) {
	am, bm, ah, bh, an, bn := rates(s.V)
	s.M = gate(s.M, am, bm, p.Dt)
	s.H = gate(s.H, ah, bh, p.Dt)
	s.N = gate(s.N, an, bn, p.Dt)

	ina := p.Gbar.Na * s.M * s.M * s.M * s.H * (s.V - p.Erev.Na)
	ik := p.Gbar.K * s.N * s.N * s.N * s.N * (s.V - p.Erev.K)
	il := p.Gbar.L * (s.V - p.Erev.L)
	s.V += p.Dt * (i - ina - ik - il) / p.Cm
}

func gate(x, alpha, beta, dt float64) float64 {
	sum := alpha + beta
	inf := alpha / sum
	return inf + (x-inf)*math.Exp(-dt*sum)
}

// HodgkinHuxley is a reference model implementing both capabilities. An
// injected pulse applies to the next recording only.
type HodgkinHuxley struct {
	Params HHParams
	name   string
	pulse  *capability.Current
}

// NewHodgkinHuxley returns a model with default parameters.
func NewHodgkinHuxley(name string) *HodgkinHuxley {
	m := &HodgkinHuxley{name: name}
	m.Params.Defaults()
	return m
}

func (m *HodgkinHuxley) Name() string { return m.name }

func (m *HodgkinHuxley) Capabilities() capability.Set {
	return capability.NewSet(capability.InjectsStepCurrent, capability.ProducesMembranePotential)
}

// InjectSquareCurrent arms a pulse for the next recording.
func (m *HodgkinHuxley) InjectSquareCurrent(c capability.Current) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.pulse = &c
	return nil
}

// GetMembranePotential integrates from rest to tstop and records every step.
func (m *HodgkinHuxley) GetMembranePotential(ctx context.Context, tstop float64) ([]float64, []float64, error) {
	p := &m.Params
	pulse := m.pulse
	m.pulse = nil

	n := int(math.Round(tstop/p.Dt)) + 1
	t := make([]float64, n)
	v := make([]float64, n)

	s := p.restState()
	t[0], v[0] = 0, s.V
	for k := 1; k < n; k++ {
		if k%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		now := float64(k-1) * p.Dt
		i := 0.0
		if pulse != nil && now >= pulse.Delay && now < pulse.End() {
			i = p.CurrentDensity(pulse.Amplitude)
		}
		p.step(&s, i)
		t[k] = float64(k) * p.Dt
		v[k] = s.V
	}
	return t, v, nil
}
